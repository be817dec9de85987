// Package command implements the line-oriented control protocol consumed by
// external presentation layers. The recognised set is closed and
// case-insensitive; anything else is silently ignored, favouring tolerance
// of line noise over strict validation.
package command

import (
	"fmt"
	"strings"

	"github.com/banshee-data/footfall/internal/monitoring"
)

// Kind identifies a recognised command.
type Kind int

const (
	// Unknown is any line outside the closed command set.
	Unknown Kind = iota
	// Reset zeroes the persisted count.
	Reset
	// Report returns the current count.
	Report
	// Recalibrate re-derives the baseline from a fresh sample window.
	Recalibrate
)

func (k Kind) String() string {
	switch k {
	case Reset:
		return "RST"
	case Report:
		return "COUNT"
	case Recalibrate:
		return "CAL"
	default:
		return "unknown"
	}
}

// Parse classifies a single line. Surrounding whitespace is ignored and
// matching is case-insensitive exact match, never a prefix or substring
// test.
func Parse(line string) Kind {
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case "RST":
		return Reset
	case "COUNT":
		return Report
	case "CAL":
		return Recalibrate
	default:
		return Unknown
	}
}

// Core is the set of counter operations the protocol drives.
type Core interface {
	// ResetCount zeroes and persists the count.
	ResetCount() (uint64, error)
	// Report returns the current count.
	Report() (uint64, error)
	// Recalibrate re-derives the baseline and returns it in centimeters.
	Recalibrate() (float64, error)
}

// Handler maps parsed commands onto a Core and writes one response line per
// recognised command through reply. Unrecognised lines produce no response.
type Handler struct {
	core  Core
	reply func(line string) error
}

// NewHandler creates a Handler replying through the given function.
func NewHandler(core Core, reply func(line string) error) *Handler {
	return &Handler{core: core, reply: reply}
}

// Handle processes one incoming line.
func (h *Handler) Handle(line string) {
	switch Parse(line) {
	case Reset:
		if _, err := h.core.ResetCount(); err != nil {
			monitoring.Logf("reset failed: %v", err)
			return
		}
		h.respond("RST:OK")

	case Report:
		count, err := h.core.Report()
		if err != nil {
			monitoring.Logf("report failed: %v", err)
			return
		}
		h.respond(fmt.Sprintf("COUNT:%d", count))

	case Recalibrate:
		if _, err := h.core.Recalibrate(); err != nil {
			monitoring.Logf("recalibration failed: %v", err)
			return
		}
		h.respond("CAL:OK")

	case Unknown:
		// Silently ignored; likely line noise.
	}
}

func (h *Handler) respond(line string) {
	if err := h.reply(line); err != nil {
		monitoring.Logf("failed to send response %q: %v", line, err)
	}
}

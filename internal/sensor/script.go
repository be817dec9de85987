package sensor

import (
	"sync"
	"time"
)

// ScriptedEcho replays a fixed sequence of echo durations, cycling when the
// script is exhausted. A zero duration in the script simulates a timed-out
// echo. Used in dev mode and for sampler tests.
type ScriptedEcho struct {
	mu     sync.Mutex
	script []time.Duration
	next   int
}

// NewScriptedEcho creates a measurer that replays script in order.
func NewScriptedEcho(script ...time.Duration) *ScriptedEcho {
	return &ScriptedEcho{script: script}
}

// CentimetersToDuration is the inverse of DurationToCentimeters, for
// building scripts in distance terms.
func CentimetersToDuration(cm float64) time.Duration {
	return time.Duration(cm*58.0) * time.Microsecond
}

// MeasureEcho returns the next scripted duration, or ErrEchoTimeout for a
// zero entry.
func (s *ScriptedEcho) MeasureEcho() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return 0, ErrEchoTimeout
	}
	d := s.script[s.next%len(s.script)]
	s.next++
	if d == 0 {
		return 0, ErrEchoTimeout
	}
	return d, nil
}

// Package api exposes the counter's read-only snapshot and its two write
// operations to external presentation layers. The GUI itself lives outside
// this program; everything here is the adapter it consumes.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/footfall/internal/counter"
	"github.com/banshee-data/footfall/internal/db"
	"github.com/banshee-data/footfall/internal/httputil"
	"github.com/banshee-data/footfall/internal/units"
	"github.com/banshee-data/footfall/internal/version"
)

// Core is the subset of engine operations the API drives.
type Core interface {
	// Snapshot returns the current read-only state.
	Snapshot() counter.Snapshot
	// ResetCount zeroes and persists the count.
	ResetCount() (uint64, error)
	// Recalibrate re-derives the baseline and returns it in centimeters.
	Recalibrate() (float64, error)
	// Resume restarts a loop paused by a report.
	Resume()
}

// Server serves the counter API.
type Server struct {
	core Core
	db   *db.DB
}

// NewServer creates an API server over the given core and journal. A nil
// journal disables the crossings and report endpoints.
func NewServer(core Core, database *db.DB) *Server {
	return &Server{core: core, db: database}
}

// ServeMux returns the handler mux for the API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.snapshotHandler)
	mux.HandleFunc("/reset", s.resetHandler)
	mux.HandleFunc("/recalibrate", s.recalibrateHandler)
	mux.HandleFunc("/resume", s.resumeHandler)
	mux.HandleFunc("/crossings", s.crossingsHandler)
	mux.HandleFunc("/report", s.reportHandler)
	mux.HandleFunc("/version", s.versionHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Footfall Counter!"))
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// snapshotResponse is the wire form of a snapshot, with the baseline
// converted to the requested units.
type snapshotResponse struct {
	Count              uint64  `json:"count"`
	Baseline           float64 `json:"baseline"`
	Units              string  `json:"units"`
	Calibrated         bool    `json:"calibrated"`
	State              string  `json:"state"`
	RemainingTimeoutMS int64   `json:"remaining_timeout_ms"`
	Paused             bool    `json:"paused"`
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = units.CM
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, "invalid units; valid values: "+units.GetValidUnitsString())
		return
	}

	snap := s.core.Snapshot()
	httputil.WriteJSONOK(w, snapshotResponse{
		Count:              snap.Count,
		Baseline:           units.ConvertDistance(snap.BaselineCM, unit),
		Units:              unit,
		Calibrated:         snap.Calibrated,
		State:              snap.State,
		RemainingTimeoutMS: snap.RemainingTimeoutMS,
		Paused:             snap.Paused,
	})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	count, err := s.core.ResetCount()
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("reset failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]uint64{"count": count})
}

func (s *Server) recalibrateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	baseline, err := s.core.Recalibrate()
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("recalibration failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]float64{"baseline_cm": baseline})
}

func (s *Server) resumeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.core.Resume()
	httputil.WriteJSONOK(w, map[string]string{"status": "resumed"})
}

func (s *Server) crossingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "journal disabled")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 5000 {
			limit = v
		}
	}

	crossings, err := s.db.Crossings(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list crossings: %v", err))
		return
	}

	for _, c := range crossings {
		if _, err := w.Write([]byte(c.String() + "\n")); err != nil {
			return
		}
	}
}

// maxReportHours bounds the report window.
const maxReportHours = 24 * 14

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "journal disabled")
		return
	}

	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v > 0 && v <= maxReportHours {
			hours = v
		}
	}

	buckets, err := s.db.HourlyCounts(time.Now().Add(-time.Duration(hours) * time.Hour))
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to roll up crossings: %v", err))
		return
	}

	if err := renderHourlyChart(w, buckets, hours); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

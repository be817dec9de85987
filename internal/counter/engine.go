package counter

import (
	"context"
	"errors"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/footfall/internal/config"
	"github.com/banshee-data/footfall/internal/monitoring"
	"github.com/banshee-data/footfall/internal/timeutil"
)

// ErrNotCalibrated is returned when a recalibration collects no valid
// samples and there is no previous baseline to fall back on.
var ErrNotCalibrated = errors.New("counter: baseline not calibrated")

// RangeSampler produces one validated distance reading per cycle.
type RangeSampler interface {
	Sample() (cm float64, ok bool)
}

// Journal records counting events for later reporting. Failures are logged
// and never stop the loop.
type Journal interface {
	RecordCrossing(countAfter uint64, distanceCM, baselineCM float64) error
}

// CountStore persists the crossing count across power cycles.
type CountStore interface {
	Load() (uint64, error)
	Save(count uint64) error
	Reset() error
}

// Snapshot is the read-only view consumed by presentation layers.
type Snapshot struct {
	Count              uint64  `json:"count"`
	BaselineCM         float64 `json:"baseline_cm"`
	Calibrated         bool    `json:"calibrated"`
	State              string  `json:"state"`
	RemainingTimeoutMS int64   `json:"remaining_timeout_ms"`
	Paused             bool    `json:"paused"`
}

type opKind int

const (
	opReset opKind = iota
	opReport
	opRecalibrate
	opResume
)

type opResult struct {
	count      uint64
	baselineCM float64
	err        error
}

type request struct {
	op   opKind
	done chan opResult
}

// Engine runs the per-cycle control loop. All mutable detection state --
// baseline, state machine, count -- is owned by the Run goroutine and
// mutated synchronously; external callers interact only through the request
// channel and the published snapshot, so no state needs a lock beyond the
// snapshot copy.
type Engine struct {
	sampler  RangeSampler
	baseline *Baseline
	detector *Detector
	store    CountStore
	journal  Journal
	clock    timeutil.Clock

	cadence       time.Duration
	calibrationN  int
	pauseOnReport bool

	// owned by the Run goroutine
	count  uint64
	paused bool

	requests chan request

	mu   sync.Mutex
	snap Snapshot
}

// NewEngine builds an Engine and loads the persisted count. A nil journal
// disables crossing journaling.
func NewEngine(sampler RangeSampler, store CountStore, journal Journal, cfg *config.Thresholds, clock timeutil.Clock) (*Engine, error) {
	count, err := store.Load()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		sampler:       sampler,
		baseline:      NewBaseline(cfg),
		detector:      NewDetector(cfg, clock),
		store:         store,
		journal:       journal,
		clock:         clock,
		cadence:       cfg.GetSampleInterval(),
		calibrationN:  cfg.GetCalibrationSamples(),
		pauseOnReport: cfg.GetPauseOnReport(),
		count:         count,
		requests:      make(chan request, 8),
	}
	e.publish()
	return e, nil
}

// Snapshot returns the most recently published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// ResetCount zeroes the count and persists immediately. Safe from any
// goroutine; executes on the next loop cycle.
func (e *Engine) ResetCount() (uint64, error) {
	res := e.do(opReset)
	return res.count, res.err
}

// Report returns the current count. If the engine was configured with
// pause_on_report, detection is suspended afterwards until Resume, so an
// external controller can poll a stable value without racing a live
// increment.
func (e *Engine) Report() (uint64, error) {
	res := e.do(opReport)
	return res.count, res.err
}

// Recalibrate blocks while the loop collects a fresh calibration window and
// returns the new baseline.
func (e *Engine) Recalibrate() (float64, error) {
	res := e.do(opRecalibrate)
	return res.baselineCM, res.err
}

// Resume re-enables detection after a pause-on-report suspension.
func (e *Engine) Resume() {
	e.do(opResume)
}

func (e *Engine) do(op opKind) opResult {
	req := request{op: op, done: make(chan opResult, 1)}
	e.requests <- req
	return <-req.done
}

// Run executes the control loop until ctx is cancelled. If the baseline has
// never been calibrated, a blocking calibration pass runs first.
func (e *Engine) Run(ctx context.Context) error {
	if !e.baseline.Calibrated() {
		if _, err := e.recalibrate(); err != nil {
			monitoring.Logf("startup calibration failed: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Drain pending control requests without starving sampling.
		e.drainRequests()

		if e.paused {
			e.publish()
			e.clock.Sleep(e.cadence)
			continue
		}

		cm, ok := e.sampler.Sample()

		if baselineCM, calibrated := e.baseline.CM(); calibrated {
			switch e.detector.Observe(cm, ok, baselineCM) {
			case Arrived:
				e.count++
				// Persist before the cycle continues so event loss across a
				// power interruption is bounded to the in-flight write.
				if err := e.store.Save(e.count); err != nil {
					monitoring.Logf("failed to persist count %d: %v", e.count, err)
				}
				if e.journal != nil {
					if err := e.journal.RecordCrossing(e.count, cm, baselineCM); err != nil {
						monitoring.Logf("failed to journal crossing %d: %v", e.count, err)
					}
				}
			case DepartedTimeout:
				monitoring.Logf("occupancy exceeded %v; forcing FREE", e.detector.occupiedTimeout)
			}

			if ok {
				e.baseline.Update(cm, e.detector.State())
			}
		}

		e.publish()
		e.clock.Sleep(e.cadence)
	}
}

func (e *Engine) drainRequests() {
	for {
		select {
		case req := <-e.requests:
			req.done <- e.handle(req.op)
		default:
			return
		}
	}
}

func (e *Engine) handle(op opKind) opResult {
	switch op {
	case opReset:
		if err := e.store.Reset(); err != nil {
			return opResult{count: e.count, err: err}
		}
		e.count = 0
		e.publish()
		return opResult{}

	case opReport:
		if e.pauseOnReport {
			e.paused = true
			e.publish()
		}
		return opResult{count: e.count}

	case opRecalibrate:
		cm, err := e.recalibrate()
		return opResult{baselineCM: cm, err: err}

	case opResume:
		e.paused = false
		e.publish()
		return opResult{count: e.count}
	}
	return opResult{}
}

// recalibrate owns the loop for its full duration: it collects the
// calibration window sample by sample, discarding invalid readings, and
// sets the baseline to the mean of the survivors. Zero valid samples keep
// the previous baseline unchanged. Either way the detector is reset, since
// occupancy reasoning against the old reference is void.
func (e *Engine) recalibrate() (float64, error) {
	valid := make([]float64, 0, e.calibrationN)
	for i := 0; i < e.calibrationN; i++ {
		if cm, ok := e.sampler.Sample(); ok {
			valid = append(valid, cm)
		}
		e.clock.Sleep(e.cadence)
	}

	defer e.publish()
	e.detector.Reset()

	if len(valid) == 0 {
		cm, calibrated := e.baseline.CM()
		if !calibrated {
			return 0, ErrNotCalibrated
		}
		monitoring.Logf("recalibration collected no valid samples; keeping baseline %.1fcm", cm)
		return cm, nil
	}

	mean := stat.Mean(valid, nil)
	e.baseline.Set(mean)
	monitoring.Logf("baseline calibrated to %.1fcm from %d samples", mean, len(valid))
	return mean, nil
}

// publish refreshes the snapshot read by other goroutines.
func (e *Engine) publish() {
	baselineCM, calibrated := e.baseline.CM()
	snap := Snapshot{
		Count:              e.count,
		BaselineCM:         baselineCM,
		Calibrated:         calibrated,
		State:              e.detector.State().String(),
		RemainingTimeoutMS: e.detector.RemainingTimeout().Milliseconds(),
		Paused:             e.paused,
	}
	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()
}

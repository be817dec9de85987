package counter

import (
	"math"
	"time"

	"github.com/banshee-data/footfall/internal/config"
	"github.com/banshee-data/footfall/internal/timeutil"
)

// Detector is the occupancy state machine. Hysteresis between the variation
// ratio (enter) and the much smaller clear ratio (leave), plus the clear
// sequence debounce, stops a person lingering near the boundary from
// re-arming the counter; the occupied timeout guarantees the machine can
// never stay stuck reporting occupied.
type Detector struct {
	variationRatio  float64
	clearRatio      float64
	clearSequence   int
	occupiedTimeout time.Duration
	clock           timeutil.Clock

	state         State
	clearCount    int
	occupiedSince time.Time
}

// NewDetector creates a Detector in the FREE state with thresholds from cfg.
func NewDetector(cfg *config.Thresholds, clock timeutil.Clock) *Detector {
	return &Detector{
		variationRatio:  cfg.GetVariationRatio(),
		clearRatio:      cfg.GetClearRatio(),
		clearSequence:   cfg.GetClearSequence(),
		occupiedTimeout: cfg.GetOccupiedTimeout(),
		clock:           clock,
	}
}

// State returns the current occupancy state.
func (d *Detector) State() State {
	return d.state
}

// ClearCount returns the current consecutive-clear progress.
func (d *Detector) ClearCount() int {
	return d.clearCount
}

// RemainingTimeout returns how long the machine may stay OCCUPIED before the
// safety timeout forces it FREE. Zero while FREE.
func (d *Detector) RemainingTimeout() time.Duration {
	if d.state != StateOccupied {
		return 0
	}
	remaining := d.occupiedTimeout - d.clock.Since(d.occupiedSince)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forces the machine back to FREE with a zero clear counter. Called
// after recalibration, when any in-progress occupancy reasoning is invalid
// against the new reference.
func (d *Detector) Reset() {
	d.state = StateFree
	d.clearCount = 0
}

// Observe evaluates one cycle against the calibrated baseline.
//
// The safety timeout is checked first and unconditionally, even for an
// invalid sample, so a sensor fault cannot pin the machine OCCUPIED. The
// comparison is strictly greater-than: at exactly the timeout the machine
// is still OCCUPIED. An invalid sample otherwise produces no transition.
func (d *Detector) Observe(distanceCM float64, valid bool, baselineCM float64) Transition {
	if d.state == StateOccupied && d.clock.Since(d.occupiedSince) > d.occupiedTimeout {
		d.state = StateFree
		d.clearCount = 0
		return DepartedTimeout
	}

	if !valid {
		return NoTransition
	}

	deviation := math.Abs(distanceCM - baselineCM)

	switch d.state {
	case StateFree:
		if deviation >= d.variationRatio*baselineCM {
			d.state = StateOccupied
			d.occupiedSince = d.clock.Now()
			d.clearCount = 0
			return Arrived
		}

	case StateOccupied:
		if deviation < d.clearRatio*baselineCM {
			d.clearCount++
			if d.clearCount >= d.clearSequence {
				d.state = StateFree
				d.clearCount = 0
				return DepartedCleared
			}
		} else {
			// No partial credit across an interruption.
			d.clearCount = 0
		}
	}

	return NoTransition
}

package counter

import (
	"math"

	"github.com/banshee-data/footfall/internal/config"
)

// Baseline holds the reference "no person present" distance. Before the
// first calibration it is explicitly uncalibrated and must not participate
// in threshold comparisons; there is no NaN sentinel.
type Baseline struct {
	cm         float64
	calibrated bool
	alpha      float64
	clearRatio float64
}

// NewBaseline creates an uncalibrated baseline with the EMA smoothing factor
// and clear ratio from cfg.
func NewBaseline(cfg *config.Thresholds) *Baseline {
	return &Baseline{
		alpha:      cfg.GetEMAAlpha(),
		clearRatio: cfg.GetClearRatio(),
	}
}

// CM returns the current baseline distance and whether it has been
// calibrated. The distance is meaningless until calibrated is true.
func (b *Baseline) CM() (float64, bool) {
	return b.cm, b.calibrated
}

// Calibrated reports whether a calibration has completed.
func (b *Baseline) Calibrated() bool {
	return b.calibrated
}

// Set replaces the baseline with a freshly calibrated value.
func (b *Baseline) Set(cm float64) {
	b.cm = cm
	b.calibrated = true
}

// Update applies the slow EMA toward sample. It mutates only when the beam
// is FREE and the sample already reads as empty (deviation below the clear
// ratio): the first condition keeps the reference from drifting toward a
// person standing in the beam, the second keeps borderline noise near the
// clear threshold from corrupting it. The tiny alpha gives a time constant
// on the order of minutes, tracking furniture and temperature but never a
// real arrival within the detection window.
func (b *Baseline) Update(distanceCM float64, state State) {
	if !b.calibrated || state != StateFree {
		return
	}
	if math.Abs(distanceCM-b.cm) >= b.clearRatio*b.cm {
		return
	}
	b.cm = b.cm*(1-b.alpha) + distanceCM*b.alpha
}

// Package sensor turns raw ultrasonic echo timings into validated distance
// readings. The hardware pulse primitive sits behind the EchoMeasurer
// interface so the sampler can be exercised with synthetic timings.
package sensor

import (
	"errors"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/footfall/internal/config"
)

// ErrEchoTimeout is returned by EchoMeasurer implementations when no echo
// returns within the hard per-pulse wait.
var ErrEchoTimeout = errors.New("sensor: echo timed out")

// EchoMeasurer triggers a single ranging pulse and reports the round-trip
// echo duration. Implementations must bound the wait; MeasureEcho never
// blocks longer than the configured echo timeout.
type EchoMeasurer interface {
	MeasureEcho() (time.Duration, error)
}

// DurationToCentimeters converts a round-trip echo duration into a one-way
// distance in centimeters. Sound travels ~343 m/s at room temperature, which
// works out to the datasheet's divide-by-58 rule for HC-SR04 class modules.
func DurationToCentimeters(d time.Duration) float64 {
	return float64(d.Microseconds()) / 58.0
}

// Sampler produces one denoised distance reading per call by taking the
// median of a small fixed window of echo measurements.
type Sampler struct {
	echo       EchoMeasurer
	window     int
	minCM      float64
	maxCM      float64
}

// NewSampler creates a Sampler reading from echo with the window size and
// valid-range bounds from cfg.
func NewSampler(echo EchoMeasurer, cfg *config.Thresholds) *Sampler {
	return &Sampler{
		echo:   echo,
		window: cfg.GetFilterWindow(),
		minCM:  cfg.GetMinRangeCM(),
		maxCM:  cfg.GetMaxRangeCM(),
	}
}

// Sample collects the full filter window and returns its median in
// centimeters. The whole sample is discarded (ok == false) if any single
// measurement times out or converts to a distance outside the valid range:
// a window mixing good and bad pulses says more about multipath noise than
// about the scene, so no partial median is produced.
func (s *Sampler) Sample() (cm float64, ok bool) {
	window := make([]float64, 0, s.window)
	for i := 0; i < s.window; i++ {
		d, err := s.echo.MeasureEcho()
		if err != nil {
			return 0, false
		}
		v := DurationToCentimeters(d)
		if v < s.minCM || v > s.maxCM {
			return 0, false
		}
		window = append(window, v)
	}
	sort.Float64s(window)
	return stat.Quantile(0.5, stat.Empirical, window, nil), true
}

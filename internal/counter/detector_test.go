package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/footfall/internal/config"
	"github.com/banshee-data/footfall/internal/timeutil"
)

func newTestDetector(t *testing.T) (*Detector, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return NewDetector(config.EmptyThresholds(), clock), clock
}

func TestArrivalThreshold(t *testing.T) {
	t.Run("deviation at exactly 30 percent arrives", func(t *testing.T) {
		d, _ := newTestDetector(t)
		tr := d.Observe(130, true, 100)
		assert.Equal(t, Arrived, tr)
		assert.Equal(t, StateOccupied, d.State())
	})

	t.Run("deviation below 30 percent stays free", func(t *testing.T) {
		d, _ := newTestDetector(t)
		tr := d.Observe(129.9, true, 100)
		assert.Equal(t, NoTransition, tr)
		assert.Equal(t, StateFree, d.State())
	})

	t.Run("deviation toward the sensor also arrives", func(t *testing.T) {
		d, _ := newTestDetector(t)
		tr := d.Observe(60, true, 100)
		assert.Equal(t, Arrived, tr)
	})
}

func TestDebouncedDeparture(t *testing.T) {
	t.Run("exactly three consecutive clear samples free the beam", func(t *testing.T) {
		d, _ := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(135, true, 100))

		assert.Equal(t, NoTransition, d.Observe(101, true, 100))
		assert.Equal(t, 1, d.ClearCount())
		assert.Equal(t, NoTransition, d.Observe(102, true, 100))
		assert.Equal(t, 2, d.ClearCount())
		assert.Equal(t, DepartedCleared, d.Observe(100, true, 100))
		assert.Equal(t, StateFree, d.State())
		assert.Equal(t, 0, d.ClearCount())
	})

	t.Run("a failing sample resets the debounce to zero", func(t *testing.T) {
		d, _ := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(135, true, 100))

		d.Observe(101, true, 100)
		d.Observe(102, true, 100)
		require.Equal(t, 2, d.ClearCount())

		// 120cm is 20% off baseline: not clear, no partial credit.
		d.Observe(120, true, 100)
		assert.Equal(t, 0, d.ClearCount())
		assert.Equal(t, StateOccupied, d.State())

		// Debounce starts over from scratch.
		d.Observe(101, true, 100)
		d.Observe(100, true, 100)
		assert.Equal(t, StateOccupied, d.State())
		assert.Equal(t, DepartedCleared, d.Observe(99, true, 100))
	})

	t.Run("clear boundary is strict", func(t *testing.T) {
		d, _ := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(135, true, 100))

		// Exactly 12% deviation fails the clear condition.
		d.Observe(112, true, 100)
		assert.Equal(t, 0, d.ClearCount())
	})
}

func TestSafetyTimeout(t *testing.T) {
	t.Run("still occupied at exactly the timeout", func(t *testing.T) {
		d, clock := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(140, true, 100))

		clock.Advance(2500 * time.Millisecond)
		tr := d.Observe(140, true, 100)
		assert.NotEqual(t, DepartedTimeout, tr)
		assert.Equal(t, StateOccupied, d.State())
	})

	t.Run("forced free one millisecond past the timeout", func(t *testing.T) {
		d, clock := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(140, true, 100))

		clock.Advance(2501 * time.Millisecond)
		tr := d.Observe(140, true, 100)
		assert.Equal(t, DepartedTimeout, tr)
		assert.Equal(t, StateFree, d.State())
	})

	t.Run("timeout fires even for an invalid sample", func(t *testing.T) {
		d, clock := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(140, true, 100))

		clock.Advance(2600 * time.Millisecond)
		tr := d.Observe(0, false, 100)
		assert.Equal(t, DepartedTimeout, tr)
	})

	t.Run("timeout beats a debounce in progress", func(t *testing.T) {
		d, clock := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(140, true, 100))

		d.Observe(101, true, 100)
		d.Observe(102, true, 100)
		clock.Advance(2600 * time.Millisecond)

		// Both clear paths lead to FREE; whichever is met first wins, and
		// the timeout check runs first in the cycle.
		tr := d.Observe(100, true, 100)
		assert.Equal(t, DepartedTimeout, tr)
		assert.Equal(t, StateFree, d.State())
	})

	t.Run("subsequent arrivals remain detectable after a timeout", func(t *testing.T) {
		d, clock := newTestDetector(t)
		require.Equal(t, Arrived, d.Observe(140, true, 100))
		clock.Advance(2600 * time.Millisecond)
		require.Equal(t, DepartedTimeout, d.Observe(140, true, 100))

		assert.Equal(t, Arrived, d.Observe(140, true, 100))
	})
}

func TestInvalidSampleIsSkipped(t *testing.T) {
	d, _ := newTestDetector(t)

	assert.Equal(t, NoTransition, d.Observe(0, false, 100))
	assert.Equal(t, StateFree, d.State())

	require.Equal(t, Arrived, d.Observe(135, true, 100))
	d.Observe(101, true, 100)
	require.Equal(t, 1, d.ClearCount())

	// Invalid samples neither advance nor reset the debounce.
	assert.Equal(t, NoTransition, d.Observe(0, false, 100))
	assert.Equal(t, 1, d.ClearCount())
}

func TestRemainingTimeout(t *testing.T) {
	d, clock := newTestDetector(t)
	assert.Equal(t, time.Duration(0), d.RemainingTimeout())

	require.Equal(t, Arrived, d.Observe(140, true, 100))
	assert.Equal(t, 2500*time.Millisecond, d.RemainingTimeout())

	clock.Advance(1000 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, d.RemainingTimeout())

	clock.Advance(2000 * time.Millisecond)
	assert.Equal(t, time.Duration(0), d.RemainingTimeout())
}

func TestReset(t *testing.T) {
	d, _ := newTestDetector(t)
	require.Equal(t, Arrived, d.Observe(140, true, 100))
	d.Observe(101, true, 100)

	d.Reset()
	assert.Equal(t, StateFree, d.State())
	assert.Equal(t, 0, d.ClearCount())
}

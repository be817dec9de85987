package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(2500 * time.Millisecond)
	if got := c.Since(start); got != 2500*time.Millisecond {
		t.Errorf("Since(start) = %v, want 2.5s", got)
	}
}

func TestMockClockSleepRecordsAndAdvances(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewMockClock(start)

	c.Sleep(25 * time.Millisecond)
	c.Sleep(25 * time.Millisecond)

	sleeps := c.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("recorded %d sleeps, want 2", len(sleeps))
	}
	if got := c.Since(start); got != 50*time.Millisecond {
		t.Errorf("clock advanced %v during sleeps, want 50ms", got)
	}
}

func TestRealClockSince(t *testing.T) {
	c := RealClock{}
	before := c.Now()
	if c.Since(before) < 0 {
		t.Error("Since returned negative duration")
	}
}

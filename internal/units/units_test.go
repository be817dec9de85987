package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	for _, u := range []string{"", "ft", "CM", "inches"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true, want false", u)
		}
	}
}

func TestConvertDistance(t *testing.T) {
	tests := []struct {
		cm    float64
		units string
		want  float64
	}{
		{100, CM, 100},
		{100, MM, 1000},
		{100, M, 1},
		{254, IN, 100},
		{42, "bogus", 42}, // unknown units fall back to cm
	}
	for _, tt := range tests {
		got := ConvertDistance(tt.cm, tt.units)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ConvertDistance(%v, %q) = %v, want %v", tt.cm, tt.units, got, tt.want)
		}
	}
}

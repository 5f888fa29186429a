package chloris

import (
	"math"
	"testing"
)

func TestToTCO2e(t *testing.T) {
	tests := []struct {
		biomassMg float64
		want      float64
	}{
		{0, 0},
		{1, 0.5 * 44.0 / 12.0},
		{100, 100 * 0.5 * 44.0 / 12.0},
		{-12, -22},
	}
	for _, tt := range tests {
		if got := ToTCO2e(tt.biomassMg); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ToTCO2e(%v) = %v, want %v", tt.biomassMg, got, tt.want)
		}
	}
}

package utils

import "testing"

func TestSampleInterval(t *testing.T) {
	tests := []struct {
		name   string
		native float64
		target float64
		want   int
	}{
		{"30 to 5", 30, 5, 6},
		{"25 to 5", 25, 5, 5},
		{"29.97 to 5", 29.97, 5, 6},
		{"target equals native", 30, 30, 1},
		{"target above native is capped", 24, 60, 1},
		{"unknown native", 0, 5, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SampleInterval(tc.native, tc.target); got != tc.want {
				t.Errorf("SampleInterval(%v, %v): got %d, want %d", tc.native, tc.target, got, tc.want)
			}
		})
	}
}

func TestExpectedSamples(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		native float64
		target float64
		want   int
	}{
		{"60s at 30fps sampled at 5", 1800, 30, 5, 300},
		{"10s at 25fps sampled at 2", 250, 25, 2, 20},
		{"partial second floors", 45, 30, 5, 7},
		{"capped at native", 90, 30, 60, 90},
		{"unknown frame count", 0, 30, 5, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpectedSamples(tc.total, tc.native, tc.target); got != tc.want {
				t.Errorf("ExpectedSamples: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(-3, 0, 2); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	if got := ClampInt(5, 0, 2); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if got := ClampInt(1, 0, 2); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

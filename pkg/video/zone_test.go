package video

import (
	"testing"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

func TestMapZone_Totality(t *testing.T) {
	sizes := [][2]int{{1280, 720}, {640, 480}, {7, 5}, {3, 4}}

	for _, s := range sizes {
		w, h := s[0], s[1]
		seen := make(map[string]bool)
		for x := 0; x < w; x += 1 + w/97 {
			for y := 0; y < h; y += 1 + h/89 {
				for _, dx := range []float64{0, 0.5, 0.999} {
					zone := MapZone(float64(x)+dx, float64(y)+dx, w, h)
					if !utils.InSlice(zone, utils.ZoneNames) {
						t.Fatalf("%dx%d (%v,%v): got %q", w, h, float64(x)+dx, float64(y)+dx, zone)
					}
					seen[zone] = true
				}
			}
		}
		if len(seen) != len(utils.ZoneNames) {
			t.Errorf("%dx%d: only %d of %d zones reachable", w, h, len(seen), len(utils.ZoneNames))
		}
	}
}

func TestMapZone_OutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
	}{
		{"negative x", -1, 10},
		{"negative y", 10, -0.001},
		{"x at width", 1280, 10},
		{"y at height", 10, 720},
		{"far away", 99999, 99999},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapZone(tc.x, tc.y, 1280, 720); got != utils.UnknownZone {
				t.Errorf("got %q, want %q", got, utils.UnknownZone)
			}
		})
	}

	if got := MapZone(1, 1, 0, 720); got != utils.UnknownZone {
		t.Errorf("zero width: got %q", got)
	}
}

func TestMapZone_Corners(t *testing.T) {
	tests := []struct {
		x, y float64
		want string
	}{
		{0, 0, "top_left"},
		{1279, 0, "top_right"},
		{640, 360, "lower_mid_center"},
		{0, 719, "bottom_left"},
		{1279.9, 719.9, "bottom_right"},
		{426, 179, "top_left"},
		{427, 180, "upper_mid_center"},
	}

	for _, tc := range tests {
		if got := MapZone(tc.x, tc.y, 1280, 720); got != tc.want {
			t.Errorf("(%v,%v): got %q, want %q", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestZoneRow(t *testing.T) {
	if got := ZoneRow("bottom_center"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	if got := ZoneRow(utils.UnknownZone); got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

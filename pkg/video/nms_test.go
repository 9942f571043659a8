package video

import (
	"reflect"
	"testing"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

func box(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{Xmin: x1, Ymin: y1, Xmax: x2, Ymax: y2}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b BoundingBox
		want float64
	}{
		{"identical", box(0, 0, 10, 10), box(0, 0, 10, 10), 1},
		{"disjoint", box(0, 0, 10, 10), box(20, 20, 30, 30), 0},
		{"touching edge", box(0, 0, 10, 10), box(10, 0, 20, 10), 0},
		{"half overlap", box(0, 0, 10, 10), box(5, 0, 15, 10), 50.0 / 150.0},
		{"contained", box(0, 0, 10, 10), box(0, 0, 5, 10), 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IoU(tc.a, tc.b)
			if diff := got - tc.want; diff < -1e-9 || diff > 1e-9 {
				t.Errorf("IoU: got %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestSuppressOverlaps(t *testing.T) {
	dets := []Detection{
		NewDetection(box(0, 0, 10, 20), 0.6, utils.PersonClass),
		NewDetection(box(1, 0, 11, 20), 0.9, utils.PersonClass),
		NewDetection(box(100, 0, 110, 20), 0.5, utils.PersonClass),
		NewDetection(box(1, 1, 10, 20), 0.8, utils.BallClass),
	}

	kept := SuppressOverlaps(dets, 0.45)

	if len(kept) != 3 {
		t.Fatalf("kept: got %d, want 3 (%+v)", len(kept), kept)
	}
	if kept[0].Confidence != 0.9 {
		t.Errorf("highest confidence box must survive first, got %.2f", kept[0].Confidence)
	}
	if kept[1].Class != utils.BallClass {
		t.Errorf("overlapping box of another class must survive, got %s", kept[1].Class)
	}
	if kept[2].Box != box(100, 0, 110, 20) {
		t.Errorf("distant box must survive, got %+v", kept[2].Box)
	}
}

func TestSuppressOverlaps_Idempotent(t *testing.T) {
	dets := make([]Detection, 0)
	for i := 0; i < 30; i++ {
		x := float64((i * 7) % 60)
		y := float64((i * 13) % 40)
		dets = append(dets, NewDetection(box(x, y, x+12, y+25), 0.3+float64(i%10)/20, utils.PersonClass))
	}

	for _, thresh := range []float64{0.2, 0.45, 0.7} {
		once := SuppressOverlaps(dets, thresh)
		twice := SuppressOverlaps(once, thresh)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("threshold %.2f: second pass changed the set (%d -> %d)", thresh, len(once), len(twice))
		}
	}
}

func TestSuppressOverlaps_Empty(t *testing.T) {
	if got := SuppressOverlaps(nil, 0.5); len(got) != 0 {
		t.Errorf("got %d detections, want 0", len(got))
	}
}

func TestSuppressOverlaps_KeepsOriginalBoxes(t *testing.T) {
	sub := box(10.4, 20.6, 50.2, 99.7)
	dets := []Detection{
		NewDetection(box(300, 0, 340, 80), 0.7, utils.PersonClass),
		NewDetection(sub, 0.7, utils.PersonClass),
		NewDetection(box(10, 21, 50, 100), 0.6, utils.PersonClass),
	}

	kept := SuppressOverlaps(dets, 0.45)

	if len(kept) != 2 {
		t.Fatalf("kept: got %d, want 2 (%+v)", len(kept), kept)
	}
	if kept[0].Box != box(300, 0, 340, 80) || kept[1].Box != sub {
		t.Errorf("equal confidence must keep input order and float boxes, got %+v", kept)
	}
}

package video

import (
	"testing"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

func TestPlotDetections(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 200, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()

	d := NewDetection(box(50, 60, 100, 160), 0.9, utils.PersonClass)
	d.Team = utils.TeamB
	d.TrackID = 7

	PlotDetections(&frame, []Detection{d}, [2]RGB{{R: 255}, {B: 255}})

	// left edge of the box, below the label
	px := frame.GetVecbAt(120, 50)
	if px[0] != 255 || px[2] != 0 {
		t.Errorf("box edge pixel (BGR): got %v, want team B blue", px)
	}

	// untouched background
	if bg := frame.GetVecbAt(190, 190); bg[0] != 0 || bg[1] != 0 || bg[2] != 0 {
		t.Errorf("background pixel: got %v, want black", bg)
	}
}

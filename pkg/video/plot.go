package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

var ballColor = color.RGBA{255, 128, 0, 0}
var unassignedColor = color.RGBA{255, 255, 255, 0}

//PlotDetections draws each detection's box in its team colour, with the track id above persons
func PlotDetections(frame *gocv.Mat, dets []Detection, teamColors [2]RGB) {
	for _, d := range dets {
		rect := d.Box.Rect()
		if rect.Empty() {
			continue
		}

		if d.Class == utils.BallClass {
			gocv.Rectangle(frame, rect, ballColor, 3)
			continue
		}

		plotColor := unassignedColor
		if d.Team == utils.TeamA || d.Team == utils.TeamB {
			c := teamColors[d.Team]
			plotColor = color.RGBA{uint8(c.R), uint8(c.G), uint8(c.B), 0}
		}
		plotPerson(frame, rect, d.TrackID, plotColor)
	}
}

//plotPerson plots given bounding box and writes above it the track id
func plotPerson(frame *gocv.Mat, rect image.Rectangle, trackID int, plotColor color.RGBA) {
	gocv.Rectangle(frame, rect, plotColor, 3)

	if trackID == utils.UnassignedTrack {
		return
	}

	whiteRGB := color.RGBA{255, 255, 255, 0}
	startPoint := image.Pt(rect.Min.X, rect.Min.Y-5)
	textBackgroundRect := image.Rect(startPoint.X, startPoint.Y-15, startPoint.X+70, startPoint.Y+5)

	gocv.Rectangle(frame, textBackgroundRect, plotColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, fmt.Sprintf("ID: %d", trackID), startPoint, gocv.FontHersheyPlain, 1, whiteRGB, 2)
}

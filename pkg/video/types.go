package video

import (
	"image"
	"math"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

//BoundingBox is an axis aligned box in source-frame pixel coordinates, Xmin < Xmax and Ymin < Ymax
type BoundingBox struct {
	Xmin float64 `json:"x1" yaml:"x1"`
	Ymin float64 `json:"y1" yaml:"y1"`
	Xmax float64 `json:"x2" yaml:"x2"`
	Ymax float64 `json:"y2" yaml:"y2"`
}

func (b BoundingBox) Width() float64  { return b.Xmax - b.Xmin }
func (b BoundingBox) Height() float64 { return b.Ymax - b.Ymin }

//Area returns 0 for degenerate boxes
func (b BoundingBox) Area() float64 {
	if b.Width() <= 0 || b.Height() <= 0 {
		return 0
	}
	return b.Width() * b.Height()
}

//Center returns the center point of the box
func (b BoundingBox) Center() (x, y float64) {
	return (b.Xmin + b.Xmax) / 2, (b.Ymin + b.Ymax) / 2
}

//Rect converts the box to an integer rectangle, used for gocv calls
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(math.Floor(b.Xmin)), int(math.Floor(b.Ymin)), int(math.Ceil(b.Xmax)), int(math.Ceil(b.Ymax)))
}

//IoU returns the intersection over union of 2 boxes, in [0,1]
func IoU(a, b BoundingBox) float64 {
	ix := math.Min(a.Xmax, b.Xmax) - math.Max(a.Xmin, b.Xmin)
	iy := math.Min(a.Ymax, b.Ymax) - math.Max(a.Ymin, b.Ymin)
	if ix <= 0 || iy <= 0 {
		return 0
	}

	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

//clip fixes box values in case they are out of frame's range
func (b BoundingBox) clip(frameWidth, frameHeight int) BoundingBox {
	w, h := float64(frameWidth), float64(frameHeight)
	b.Xmin = math.Max(0, math.Min(b.Xmin, w))
	b.Xmax = math.Max(0, math.Min(b.Xmax, w))
	b.Ymin = math.Max(0, math.Min(b.Ymin, h))
	b.Ymax = math.Max(0, math.Min(b.Ymax, h))
	return b
}

//RGB is a mean colour, each channel in [0,255]
type RGB struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

func (c RGB) distSq(o RGB) float64 {
	dr, dg, db := c.R-o.R, c.G-o.G, c.B-o.B
	return dr*dr + dg*dg + db*db
}

//Frame is one sampled still image. Mat is owned by the frame and closed by whoever consumes it.
type Frame struct {
	Index       int
	SourceIndex int
	Timestamp   time.Duration
	Mat         gocv.Mat
}

//Detection is one object found in one frame.
//Team and TrackID stay at utils.UnassignedTeam / utils.UnassignedTrack until their stage ran.
type Detection struct {
	Box        BoundingBox `json:"bbox" yaml:"bbox"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Class      string      `json:"class" yaml:"class"`
	Color      RGB         `json:"jersey_color" yaml:"jersey_color"`
	HasColor   bool        `json:"-" yaml:"-"`
	Team       int         `json:"team_label" yaml:"team_label"`
	TrackID    int         `json:"track_id" yaml:"track_id"`
}

//NewDetection returns a detection with no colour, team or track
func NewDetection(box BoundingBox, confidence float64, class string) Detection {
	return Detection{
		Box:        box,
		Confidence: confidence,
		Class:      class,
		Team:       utils.UnassignedTeam,
		TrackID:    utils.UnassignedTrack,
	}
}

//IsPerson returns true for player-like detections
func (d Detection) IsPerson() bool {
	return d.Class == utils.PersonClass
}

//FrameDetections groups everything found in a single sampled frame
type FrameDetections struct {
	FrameIndex int           `json:"frame_number"`
	Timestamp  time.Duration `json:"-"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Detections []Detection   `json:"detections"`
	FrameURL   string        `json:"frame_url,omitempty"`
	Err        string        `json:"error,omitempty"`
}

//Persons returns the person-class detections of this frame
func (f *FrameDetections) Persons() []Detection {
	persons := make([]Detection, 0, len(f.Detections))
	for _, d := range f.Detections {
		if d.IsPerson() {
			persons = append(persons, d)
		}
	}
	return persons
}

//TrackState is the lifecycle of a tracked identity
type TrackState int

const (
	TrackActive TrackState = iota
	TrackStale
	TrackRetired
)

func (s TrackState) String() string {
	switch s {
	case TrackActive:
		return "active"
	case TrackStale:
		return "stale"
	default:
		return "retired"
	}
}

//Observation is one (frame, box) sample of a track
type Observation struct {
	FrameIndex int         `json:"frame_number"`
	Box        BoundingBox `json:"bbox"`
}

//Track is a persistent identity across frames
type Track struct {
	ID           int           `json:"track_id"`
	Observations []Observation `json:"observations"`
	Staleness    int           `json:"staleness"`
	State        TrackState    `json:"-"`
}

func (t *Track) lastBox() BoundingBox {
	return t.Observations[len(t.Observations)-1].Box
}

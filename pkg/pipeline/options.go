package pipeline

import (
	"fmt"

	"github.com/chenBenjamin97/football-tactics/pkg/video"
)

//Options are the per-request analysis parameters
type Options struct {
	SampleFPS           float64 `json:"sample_fps"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	NMSThreshold        float64 `json:"nms_threshold"`
	MaxTrackStaleness   int     `json:"max_track_staleness"`
	FormationLines      int     `json:"formation_lines"`
	//PersistFrames stores every sampled frame as JPEG in the blob store
	PersistFrames bool `json:"persist_frames"`
	//Annotate draws detections on the frames referenced by weaknesses, requires PersistFrames
	Annotate bool `json:"annotate"`
}

func DefaultOptions() Options {
	return Options{
		SampleFPS:           5,
		Width:               1280,
		Height:              720,
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.45,
		MaxTrackStaleness:   3,
		FormationLines:      video.DefaultFormationLines,
		PersistFrames:       true,
		Annotate:            true,
	}
}

//Validate checks every field is in range
func (o Options) Validate() error {
	switch {
	case o.SampleFPS <= 0:
		return fmt.Errorf("%w: sample fps must be positive, got %v", ErrInvalidOptions, o.SampleFPS)
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: frame resolution must be positive, got %dx%d", ErrInvalidOptions, o.Width, o.Height)
	case o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence threshold must be in [0,1], got %v", ErrInvalidOptions, o.ConfidenceThreshold)
	case o.NMSThreshold < 0 || o.NMSThreshold > 1:
		return fmt.Errorf("%w: nms threshold must be in [0,1], got %v", ErrInvalidOptions, o.NMSThreshold)
	case o.MaxTrackStaleness < 1:
		return fmt.Errorf("%w: max track staleness must be positive, got %d", ErrInvalidOptions, o.MaxTrackStaleness)
	case o.FormationLines < 1:
		return fmt.Errorf("%w: formation lines must be positive, got %d", ErrInvalidOptions, o.FormationLines)
	}
	return nil
}

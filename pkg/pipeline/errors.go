package pipeline

import (
	"errors"
	"fmt"
)

//Stage identifies where an analysis failed
type Stage string

const (
	StageSampler     Stage = "sampler"
	StageDetector    Stage = "detector"
	StageClassifier  Stage = "classifier"
	StageTracker     Stage = "tracker"
	StageSynthesizer Stage = "synthesizer"
	StageStorage     Stage = "storage"
)

var (
	//ErrNoDetections aborts a run where no frame produced a single person
	ErrNoDetections = errors.New("pipeline: no detections in the whole video")

	//ErrInsufficientSignal marks a stage that degraded to an "unknown" result
	ErrInsufficientSignal = errors.New("pipeline: insufficient signal")

	//ErrCollaboratorUnavailable wraps failures of blob storage, the secondary store or text generation
	ErrCollaboratorUnavailable = errors.New("pipeline: collaborator unavailable")

	//ErrInvalidOptions is returned before any work when options are out of range
	ErrInvalidOptions = errors.New("pipeline: invalid options")
)

//StageError is the structured error returned by Analyze
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

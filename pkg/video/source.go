package video

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

var (
	//ErrSourceUnreadable is returned when the video stream cannot be opened
	ErrSourceUnreadable = errors.New("video: source unreadable")

	//ErrEmptySource is returned when no frame could be decoded from an opened stream
	ErrEmptySource = errors.New("video: no decodable frames")
)

//DefaultNativeFPS is assumed when the container does not report a frame rate
const DefaultNativeFPS = 30

//Source is a decodable stream of BGR frames
type Source interface {
	//NativeFPS is the stream frame rate, 0 when unknown
	NativeFPS() float64
	//FrameCount is the total number of frames, 0 when unknown
	FrameCount() int
	//Read decodes the next frame into m, false at end of stream
	Read(m *gocv.Mat) bool
	Close() error
}

type captureSource struct {
	cap *gocv.VideoCapture
}

//OpenFile opens a local video file with OpenCV
func OpenFile(videoPath string) (Source, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	cap, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: could not open '%s'", ErrSourceUnreadable, videoPath)
	}

	return &captureSource{cap: cap}, nil
}

func (c *captureSource) NativeFPS() float64 {
	return c.cap.Get(gocv.VideoCaptureFPS)
}

func (c *captureSource) FrameCount() int {
	return int(c.cap.Get(gocv.VideoCaptureFrameCount))
}

func (c *captureSource) Read(m *gocv.Mat) bool {
	return c.cap.Read(m) && !m.Empty()
}

func (c *captureSource) Close() error {
	return c.cap.Close()
}

//Probe returns the duration in seconds and native fps of a local video, used for upload validation
func Probe(videoPath string) (durationSec float64, fps float64, err error) {
	src, err := OpenFile(videoPath)
	if err != nil {
		return 0, 0, err
	}
	defer src.Close()

	fps = src.NativeFPS()
	if fps <= 0 {
		fps = DefaultNativeFPS
	}

	return float64(src.FrameCount()) / fps, fps, nil
}

package video

import "gocv.io/x/gocv"

//MemorySource replays one still image as a video of a fixed length.
//Used for synthetic clips and for pipelines fed from already decoded images.
type MemorySource struct {
	still  gocv.Mat
	frames int
	fps    float64
	read   int
}

//NewMemorySource takes ownership of still
func NewMemorySource(still gocv.Mat, frames int, fps float64) *MemorySource {
	return &MemorySource{still: still, frames: frames, fps: fps}
}

func (m *MemorySource) NativeFPS() float64 { return m.fps }
func (m *MemorySource) FrameCount() int    { return m.frames }

func (m *MemorySource) Read(dst *gocv.Mat) bool {
	if m.read >= m.frames {
		return false
	}
	m.read++
	m.still.CopyTo(dst)
	return true
}

func (m *MemorySource) Close() error {
	return m.still.Close()
}

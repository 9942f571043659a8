package video

import (
	"context"
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func newTestSource(frames int, fps float64) *MemorySource {
	still := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 0, 0), 36, 64, gocv.MatTypeCV8UC3)
	return NewMemorySource(still, frames, fps)
}

func TestSampler_RateLaw(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		native  float64
		target  float64
	}{
		{"10s 30fps at 5", 10, 30, 5},
		{"4s 25fps at 5", 4, 25, 5},
		{"3s 24fps at 2", 3, 24, 2},
		{"2s 10fps at native", 2, 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newTestSource(tc.seconds*int(tc.native), tc.native)
			defer src.Close()

			s := NewSampler(SamplerConfig{FPS: tc.target, Width: 32, Height: 18})
			count := 0
			stats, err := s.Sample(context.Background(), src, func(f Frame) error {
				if f.Index != count {
					t.Errorf("frame index: got %d, want %d", f.Index, count)
				}
				if f.Mat.Cols() != 32 || f.Mat.Rows() != 18 {
					t.Errorf("frame size: got %dx%d, want 32x18", f.Mat.Cols(), f.Mat.Rows())
				}
				count++
				return nil
			})
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}

			want := int(float64(tc.seconds) * tc.target)
			if count != want || stats.Emitted != want {
				t.Errorf("emitted: got %d (stats %d), want %d", count, stats.Emitted, want)
			}
		})
	}
}

func TestSampler_TargetAboveNativeEmitsEveryFrame(t *testing.T) {
	src := newTestSource(12, 6)
	defer src.Close()

	s := NewSampler(SamplerConfig{FPS: 60, Width: 16, Height: 9})
	var sourceIdx []int
	stats, err := s.Sample(context.Background(), src, func(f Frame) error {
		sourceIdx = append(sourceIdx, f.SourceIndex)
		return nil
	})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if stats.Interval != 1 {
		t.Errorf("interval: got %d, want 1", stats.Interval)
	}
	for i, idx := range sourceIdx {
		if idx != i {
			t.Fatalf("source index %d: got %d, frames must not be duplicated or skipped", i, idx)
		}
	}
	if len(sourceIdx) != 12 {
		t.Errorf("emitted: got %d, want 12", len(sourceIdx))
	}
}

func TestSampler_EmptySource(t *testing.T) {
	src := newTestSource(0, 30)
	defer src.Close()

	_, err := NewSampler(SamplerConfig{FPS: 5}).Sample(context.Background(), src, func(Frame) error { return nil })
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("got %v, want ErrEmptySource", err)
	}
}

func TestSampler_Cancelled(t *testing.T) {
	src := newTestSource(300, 30)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	emitted := 0
	_, err := NewSampler(SamplerConfig{FPS: 5}).Sample(ctx, src, func(Frame) error {
		emitted++
		if emitted == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if emitted != 3 {
		t.Errorf("emitted after cancel: got %d, want 3", emitted)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	if _, err := OpenFile("does-not-exist.mp4"); !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("got %v, want ErrSourceUnreadable", err)
	}
}

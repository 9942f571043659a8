package video

import (
	"context"
	"image"
	"log"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

//SamplerConfig sets the sampling rate and the exact output resolution (aspect ratio is not kept)
type SamplerConfig struct {
	FPS    float64
	Width  int
	Height int
}

//SampleStats describes one sampling run
type SampleStats struct {
	NativeFPS    float64
	SourceFrames int
	Interval     int
	Expected     int
	Decoded      int
	Emitted      int
	Duration     time.Duration
}

//Sampler emits resized frames at a fixed rate from a Source
type Sampler struct {
	cfg SamplerConfig
}

func NewSampler(cfg SamplerConfig) *Sampler {
	return &Sampler{cfg: cfg}
}

//Sample decodes src and calls fn with every interval-th frame, in order.
//The frame Mat is closed after fn returns, fn must clone it to keep it.
//Sampling halts once floor(duration*fps) frames were emitted even if the stream has more.
//ctx is checked before each decode, a frame already handed to fn is not interrupted.
func (s *Sampler) Sample(ctx context.Context, src Source, fn func(Frame) error) (SampleStats, error) {
	stats := SampleStats{NativeFPS: src.NativeFPS(), SourceFrames: src.FrameCount()}
	if stats.NativeFPS <= 0 {
		stats.NativeFPS = DefaultNativeFPS
	}

	stats.Interval = utils.SampleInterval(stats.NativeFPS, s.cfg.FPS)
	stats.Expected = utils.ExpectedSamples(stats.SourceFrames, stats.NativeFPS, s.cfg.FPS)
	stats.Duration = time.Duration(float64(stats.SourceFrames) / stats.NativeFPS * float64(time.Second))

	decoded := gocv.NewMat()
	defer decoded.Close()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if !src.Read(&decoded) {
			break
		}

		sourceIndex := stats.Decoded
		stats.Decoded++

		if sourceIndex%stats.Interval != 0 {
			continue
		}

		frame := Frame{
			Index:       stats.Emitted,
			SourceIndex: sourceIndex,
			Timestamp:   time.Duration(float64(sourceIndex) / stats.NativeFPS * float64(time.Second)),
			Mat:         s.resize(decoded),
		}

		err := fn(frame)
		frame.Mat.Close()
		if err != nil {
			return stats, err
		}

		stats.Emitted++
		if stats.Emitted%50 == 0 {
			log.Printf("Sample: extracted %d/%d frames", stats.Emitted, stats.Expected)
		}

		if stats.Expected > 0 && stats.Emitted >= stats.Expected {
			break
		}
	}

	if stats.Decoded == 0 {
		return stats, ErrEmptySource
	}

	if stats.SourceFrames <= 0 {
		stats.Duration = time.Duration(float64(stats.Decoded) / stats.NativeFPS * float64(time.Second))
	}

	return stats, nil
}

func (s *Sampler) resize(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	if s.cfg.Width <= 0 || s.cfg.Height <= 0 {
		src.CopyTo(&dst)
		return dst
	}

	gocv.Resize(src, &dst, image.Pt(s.cfg.Width, s.cfg.Height), 0, 0, gocv.InterpolationLinear)
	return dst
}

// Package pipeline runs one video through sampling, detection, team classification, tracking,
// formation inference and tactical synthesis, then persists the report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/tactics"
	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
)

//Config holds the collaborators of an Analyzer. Blob, Recorder and Generator are optional.
type Config struct {
	Detector  video.Detector
	Opener    Opener
	Blob      storage.Blob
	Recorder  storage.Recorder
	Generator tactics.TextGenerator
	Tactics   tactics.Config
}

//Analyzer owns the detector handle for its lifetime; all per-video state lives inside Analyze
type Analyzer struct {
	detector video.Detector
	opener   Opener
	blob     storage.Blob
	recorder storage.Recorder
	synth    *tactics.Synthesizer
}

//Request identifies the video to analyze
type Request struct {
	VideoID string
	//Source is handed to the Opener
	Source string
	//VideoURL is reported in storage.video_url, defaults to Source
	VideoURL string
}

func New(cfg Config) (*Analyzer, error) {
	if cfg.Detector == nil {
		return nil, errors.New("pipeline.New: Error, detector is required")
	}
	if cfg.Opener == nil {
		return nil, errors.New("pipeline.New: Error, opener is required")
	}
	if cfg.Tactics == (tactics.Config{}) {
		cfg.Tactics = tactics.DefaultConfig()
	}

	return &Analyzer{
		detector: cfg.Detector,
		opener:   cfg.Opener,
		blob:     cfg.Blob,
		recorder: cfg.Recorder,
		synth:    tactics.NewSynthesizer(cfg.Tactics, cfg.Generator),
	}, nil
}

//Blob returns the configured blob store, nil when none
func (a *Analyzer) Blob() storage.Blob {
	return a.blob
}

//Recorder returns the configured secondary store, nil when none
func (a *Analyzer) Recorder() storage.Recorder {
	return a.recorder
}

//Analyze runs the whole pipeline. It returns either a complete report or a *StageError.
//Persistence of frames, the report JSON and the analyses row is best effort and only logged.
func (a *Analyzer) Analyze(ctx context.Context, req Request, opts Options) (*tactics.Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if req.VideoURL == "" {
		req.VideoURL = req.Source
	}
	start := time.Now()

	src, err := a.opener.Open(ctx, req.Source)
	if err != nil {
		if errors.Is(err, ErrCollaboratorUnavailable) {
			return nil, stageErr(StageStorage, err)
		}
		return nil, stageErr(StageSampler, err)
	}
	defer src.Close()

	frames, stats, err := a.sampleAndDetect(ctx, req.VideoID, src, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("Analyze: %s sampled %d frames (interval %d, %d decoded)", req.VideoID, stats.Emitted, stats.Interval, stats.Decoded)

	if countPersons(frames) == 0 {
		return nil, stageErr(StageDetector, ErrNoDetections)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageClassifier, err)
	}
	teams := classify(frames)
	if !teams.Clustered {
		log.Printf("Analyze: %s team classification skipped, %v", req.VideoID, ErrInsufficientSignal)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageTracker, err)
	}
	tracks, err := track(frames, opts.MaxTrackStaleness)
	if err != nil {
		return nil, stageErr(StageTracker, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageSynthesizer, err)
	}
	defendsTop := tactics.DefendsTop(frames)
	var formations [2]video.Formation
	for label := range formations {
		formations[label] = video.InferFormation(teamObservations(frames, label), opts.FormationLines, defendsTop[label])
		if formations[label].Descriptor == utils.UnknownFormation {
			log.Printf("Analyze: %s %s formation unknown, %v", req.VideoID, tactics.TeamKey(label), ErrInsufficientSignal)
		}
	}

	report := a.synth.Synthesize(ctx, tactics.Input{
		VideoID:    req.VideoID,
		Frames:     frames,
		TeamColors: teams.Colors,
		Formations: formations,
		DefendsTop: defendsTop,
		Tracks:     tracks,
		Metadata: tactics.Metadata{
			DurationSeconds: int(stats.Duration.Seconds()),
			OriginalFPS:     utils.Round2(stats.NativeFPS),
			ExtractionFPS:   opts.SampleFPS,
			TotalFrames:     len(frames),
			VideoResolution: fmt.Sprintf("%dx%d", opts.Width, opts.Height),
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		},
	})
	report.Storage.VideoURL = req.VideoURL

	if opts.Annotate && opts.PersistFrames {
		a.annotateWeaknesses(ctx, req.VideoID, frames, teams.Colors, report)
	}
	a.persist(ctx, report)

	log.Printf("Analyze: %s done in %v, %d weaknesses, narrative %s", req.VideoID, time.Since(start).Round(time.Millisecond),
		len(report.TacticalAnalysis.Weaknesses), report.TacticalAnalysis.NarrativeSource)

	return report, nil
}

//sampleAndDetect streams frames through the detector, one frame in memory at a time.
//A failed inference is recorded against its frame and the run continues.
func (a *Analyzer) sampleAndDetect(ctx context.Context, videoID string, src video.Source, opts Options) ([]video.FrameDetections, video.SampleStats, error) {
	sampler := video.NewSampler(video.SamplerConfig{FPS: opts.SampleFPS, Width: opts.Width, Height: opts.Height})
	th := video.Thresholds{Confidence: opts.ConfidenceThreshold, NMS: opts.NMSThreshold}

	frames := make([]video.FrameDetections, 0)
	stats, err := sampler.Sample(ctx, src, func(f video.Frame) error {
		fd := video.FrameDetections{
			FrameIndex: f.Index,
			Timestamp:  f.Timestamp,
			Width:      f.Mat.Cols(),
			Height:     f.Mat.Rows(),
			Detections: make([]video.Detection, 0),
		}

		if opts.PersistFrames {
			fd.FrameURL = a.persistFrame(ctx, videoID, f)
		}

		dets, err := a.detector.Detect(f.Mat, th)
		if err != nil {
			if !errors.Is(err, video.ErrInference) {
				err = fmt.Errorf("%w: %v", video.ErrInference, err)
			}
			log.Printf("Analyze: frame %d detection failed, got '%v'", f.Index, err)
			fd.Err = err.Error()
			frames = append(frames, fd)
			return nil
		}

		for i := range dets {
			if dets[i].IsPerson() {
				dets[i].Color, dets[i].HasColor = video.ExtractColor(f.Mat, dets[i].Box)
			}
		}
		fd.Detections = dets
		frames = append(frames, fd)
		return nil
	})
	if err != nil {
		return nil, stats, stageErr(StageSampler, err)
	}

	return frames, stats, nil
}

func (a *Analyzer) persistFrame(ctx context.Context, videoID string, f video.Frame) string {
	if a.blob == nil {
		return ""
	}
	data, err := video.EncodeJPEG(f.Mat, utils.JPEGQuality)
	if err != nil {
		log.Printf("Analyze: frame %d encode failed, got '%v'", f.Index, err)
		return ""
	}
	url, err := a.blob.Put(ctx, data, storage.FramePath(videoID, f.Index), "image/jpeg")
	if err != nil {
		log.Printf("Analyze: frame %d upload failed, %v: %v", f.Index, ErrCollaboratorUnavailable, err)
		return ""
	}
	return url
}

func countPersons(frames []video.FrameDetections) int {
	n := 0
	for i := range frames {
		for _, d := range frames[i].Detections {
			if d.IsPerson() {
				n++
			}
		}
	}
	return n
}

//classify clusters every person detection of the video at once and writes the labels back
func classify(frames []video.FrameDetections) video.TeamResult {
	type ref struct{ frame, det int }
	batch := make([]video.Detection, 0)
	refs := make([]ref, 0)
	for fi := range frames {
		for di, d := range frames[fi].Detections {
			if d.IsPerson() {
				batch = append(batch, d)
				refs = append(refs, ref{fi, di})
			}
		}
	}

	res := video.AssignTeams(batch)
	for i, r := range refs {
		frames[r.frame].Detections[r.det].Team = res.Labels[i]
	}
	return res
}

//track feeds person boxes to a fresh tracker in frame order and returns the number of tracks created
func track(frames []video.FrameDetections, maxStaleness int) (int, error) {
	tracker := video.NewTracker(maxStaleness)
	for fi := range frames {
		f := &frames[fi]
		boxes := make([]video.BoundingBox, 0, len(f.Detections))
		idx := make([]int, 0, len(f.Detections))
		for di, d := range f.Detections {
			if d.IsPerson() {
				boxes = append(boxes, d.Box)
				idx = append(idx, di)
			}
		}

		ids, err := tracker.Update(f.FrameIndex, boxes)
		if err != nil {
			return 0, err
		}
		for i, di := range idx {
			f.Detections[di].TrackID = ids[i]
		}
	}
	return len(tracker.Tracks()), nil
}

func teamObservations(frames []video.FrameDetections, label int) []video.Observation {
	obs := make([]video.Observation, 0)
	for _, f := range frames {
		for _, d := range f.Detections {
			if d.IsPerson() && d.Team == label {
				obs = append(obs, video.Observation{FrameIndex: f.FrameIndex, Box: d.Box})
			}
		}
	}
	return obs
}

//annotateWeaknesses redraws the persisted frames referenced by weaknesses with team boxes and track ids
func (a *Analyzer) annotateWeaknesses(ctx context.Context, videoID string, frames []video.FrameDetections, colors [2]video.RGB, report *tactics.Report) {
	if a.blob == nil {
		return
	}

	byIndex := make(map[int]*video.FrameDetections, len(frames))
	for i := range frames {
		byIndex[frames[i].FrameIndex] = &frames[i]
	}

	for i := range report.TacticalAnalysis.Weaknesses {
		w := &report.TacticalAnalysis.Weaknesses[i]
		f, ok := byIndex[w.FrameNumber]
		if !ok || f.FrameURL == "" {
			continue
		}

		url, err := a.annotateFrame(ctx, videoID, f, colors)
		if err != nil {
			log.Printf("Analyze: annotating frame %d failed, got '%v'", w.FrameNumber, err)
			continue
		}
		w.AnnotatedURL = url
	}
}

func (a *Analyzer) annotateFrame(ctx context.Context, videoID string, f *video.FrameDetections, colors [2]video.RGB) (string, error) {
	data, err := a.blob.Get(ctx, storage.FramePath(videoID, f.FrameIndex))
	if err != nil {
		return "", err
	}

	img, err := video.DecodeImage(data)
	if err != nil {
		return "", err
	}
	defer img.Close()

	video.PlotDetections(&img, f.Detections, colors)

	out, err := video.EncodeJPEG(img, utils.JPEGQuality)
	if err != nil {
		return "", err
	}
	return a.blob.Put(ctx, out, storage.AnnotatedFramePath(videoID, f.FrameIndex), "image/jpeg")
}

//persist writes the report JSON and the analyses row as two independent best-effort side effects
func (a *Analyzer) persist(ctx context.Context, report *tactics.Report) {
	if a.blob != nil {
		report.Storage.JSONURL = a.blob.URL(storage.ResultPath(report.VideoID))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("Analyze: %s report marshal failed, got '%v'", report.VideoID, err)
		return
	}

	if a.blob != nil {
		if _, err := a.blob.Put(ctx, data, storage.ResultPath(report.VideoID), "application/json"); err != nil {
			log.Printf("Analyze: %s report upload failed, %v: %v", report.VideoID, ErrCollaboratorUnavailable, err)
			report.Storage.JSONURL = ""
		} else {
			log.Printf("Analyze: %s report stored at %s", report.VideoID, report.Storage.JSONURL)
		}
	}

	if a.recorder != nil {
		row := storage.Analysis{
			VideoID:         report.VideoID,
			AnalysisData:    string(data),
			Status:          report.Status,
			ConfidenceScore: report.Teams.TeamB.FormationConfidence,
		}
		if err := a.recorder.Record(ctx, row); err != nil {
			log.Printf("Analyze: %s analyses row failed, %v: %v", report.VideoID, ErrCollaboratorUnavailable, err)
		} else {
			log.Printf("Analyze: %s analyses row recorded", report.VideoID)
		}
	}
}

//Close releases the detector
func (a *Analyzer) Close() error {
	return a.detector.Close()
}

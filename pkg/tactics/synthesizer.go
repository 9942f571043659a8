package tactics

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
)

//Config tunes the synthesizer
type Config struct {
	WeaknessThreshold int
	MaxWeaknesses     int
	MaxOutputTokens   int
	NarrativeTimeout  time.Duration
}

//DefaultConfig returns the thresholds used by the service
func DefaultConfig() Config {
	return Config{
		WeaknessThreshold: utils.DefensiveThreshold,
		MaxWeaknesses:     utils.MaxWeaknesses,
		MaxOutputTokens:   1500,
		NarrativeTimeout:  60 * time.Second,
	}
}

//Input is everything the earlier stages produced for one video.
//Frames carry detections with team labels and track ids already assigned.
type Input struct {
	VideoID    string
	Frames     []video.FrameDetections
	TeamColors [2]video.RGB
	Formations [2]video.Formation
	DefendsTop [2]bool
	Tracks     int
	Metadata   Metadata
}

//Synthesizer aggregates stage outputs into a Report
type Synthesizer struct {
	cfg Config
	gen TextGenerator
}

//NewSynthesizer accepts a nil generator, the narrative is then always the template
func NewSynthesizer(cfg Config, gen TextGenerator) *Synthesizer {
	return &Synthesizer{cfg: cfg, gen: gen}
}

//Synthesize builds the report. A failing text generator never fails the report, it only narrows the
//narrative to the template.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) *Report {
	r := &Report{
		Status:         utils.StatusSuccess,
		VideoID:        in.VideoID,
		Metadata:       in.Metadata,
		FrameErrors:    make([]FrameError, 0),
		PlayerAnalysis: PlayerAnalysis(in.Frames),
	}
	r.Metadata.VideoID = in.VideoID

	okFrames := 0
	var perTeam [2]int
	for _, f := range in.Frames {
		if f.Err != "" {
			r.FrameErrors = append(r.FrameErrors, FrameError{FrameNumber: f.FrameIndex, Error: f.Err})
			continue
		}
		okFrames++
		for _, d := range f.Detections {
			switch {
			case d.Class == utils.BallClass:
				r.Statistics.TotalBalls++
			case d.IsPerson():
				r.Statistics.TotalPlayers++
				if d.Team == utils.TeamA || d.Team == utils.TeamB {
					perTeam[d.Team]++
				}
			}
		}
	}

	r.Statistics.FramesAnalyzed = len(in.Frames)
	r.Statistics.FailedFrames = len(r.FrameErrors)
	r.Statistics.Tracks = in.Tracks
	if okFrames > 0 {
		r.Statistics.AvgPlayersPerFrame = utils.Round2(float64(r.Statistics.TotalPlayers) / float64(okFrames))
	}

	teams := [2]*TeamSummary{&r.Teams.TeamA, &r.Teams.TeamB}
	for label, t := range teams {
		t.Formation = in.Formations[label].Descriptor
		t.FormationConfidence = utils.Round2(in.Formations[label].Confidence)
		t.Color = in.TeamColors[label]
		t.DefendsTop = in.DefendsTop[label]
		if okFrames > 0 {
			t.PlayerCount = int(float64(perTeam[label])/float64(okFrames) + 0.5)
		}
	}

	r.TacticalAnalysis.Weaknesses = DetectWeaknesses(in.Frames, in.DefendsTop, s.cfg.WeaknessThreshold, s.cfg.MaxWeaknesses)
	r.Statistics.WeaknessesFound = len(r.TacticalAnalysis.Weaknesses)

	r.TacticalAnalysis.Insights, r.TacticalAnalysis.NarrativeSource = s.narrate(ctx, AggregatesOf(r))

	return r
}

func (s *Synthesizer) narrate(ctx context.Context, agg Aggregates) (string, string) {
	if s.gen == nil {
		return TemplateNarrative(agg), utils.NarrativeTemplate
	}

	if s.cfg.NarrativeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.NarrativeTimeout)
		defer cancel()
	}

	text, err := s.gen.Complete(ctx, BuildPrompt(agg), s.cfg.MaxOutputTokens)
	if err != nil {
		log.Printf("Synthesize: text generation failed, using template narrative, got '%v'", err)
		return TemplateNarrative(agg), utils.NarrativeTemplate
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("Synthesize: text generation returned an empty narrative, using template")
		return TemplateNarrative(agg), utils.NarrativeTemplate
	}

	return text, utils.NarrativeAI
}

//DefendsTop reports, per team label, whether the team's mean vertical position lies in the top half of the frame
func DefendsTop(frames []video.FrameDetections) [2]bool {
	var sum [2]float64
	var count [2]int
	for _, f := range frames {
		if f.Height <= 0 {
			continue
		}
		for _, d := range f.Detections {
			if !d.IsPerson() || (d.Team != utils.TeamA && d.Team != utils.TeamB) {
				continue
			}
			_, y := d.Box.Center()
			sum[d.Team] += y / float64(f.Height)
			count[d.Team]++
		}
	}

	var res [2]bool
	for team := range res {
		res[team] = count[team] == 0 || sum[team]/float64(count[team]) < 0.5
	}
	return res
}

//PlayerAnalysis summarises zone occupancy per track, the team being the label most seen on the track
func PlayerAnalysis(frames []video.FrameDetections) []PlayerSummary {
	type acc struct {
		summary PlayerSummary
		teams   [2]int
	}
	byTrack := make(map[int]*acc)

	for _, f := range frames {
		for _, d := range f.Detections {
			if !d.IsPerson() || d.TrackID == utils.UnassignedTrack {
				continue
			}
			a, ok := byTrack[d.TrackID]
			if !ok {
				a = &acc{summary: PlayerSummary{
					TrackID:       d.TrackID,
					FirstFrame:    f.FrameIndex,
					ZoneOccupancy: make(map[string]int),
				}}
				byTrack[d.TrackID] = a
			}
			a.summary.Observations++
			a.summary.LastFrame = f.FrameIndex
			a.summary.ZoneOccupancy[video.MapDetectionZone(d.Box, f.Width, f.Height)]++
			if d.Team == utils.TeamA || d.Team == utils.TeamB {
				a.teams[d.Team]++
			}
		}
	}

	out := make([]PlayerSummary, 0, len(byTrack))
	for _, a := range byTrack {
		label := utils.TeamA
		if a.teams[utils.TeamB] > a.teams[utils.TeamA] {
			label = utils.TeamB
		}
		a.summary.Team = TeamKey(label)
		a.summary.DominantZone = dominantZone(a.summary.ZoneOccupancy)
		out = append(out, a.summary)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

//dominantZone picks the most occupied zone, ties broken by zone name
func dominantZone(occ map[string]int) string {
	best, bestN := utils.UnknownZone, 0
	for zone, n := range occ {
		if n > bestN || (n == bestN && zone < best) {
			best, bestN = zone, n
		}
	}
	return best
}

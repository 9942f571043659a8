package video

import (
	"math"
	"strconv"
	"strings"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

//DefaultFormationLines is how many horizontal bands player positions are bucketed into
const DefaultFormationLines = 5

//Formation is a heuristic shape descriptor for one team
type Formation struct {
	Descriptor string  `json:"formation"`
	Confidence float64 `json:"formation_confidence"`
	Lines      []int   `json:"lines,omitempty"`
}

//UnknownFormation is returned when positions are too few to say anything
func UnknownFormation() Formation {
	return Formation{Descriptor: utils.UnknownFormation, Confidence: 0}
}

//InferFormation buckets a team's observations into `lines` bands along the vertical axis, spanning the
//team's observed extent. Each band's size is its observation count averaged over the frames observed,
//rounded; bands that round to zero are dropped. Bands are listed from the defensive end: the top of the
//frame when defendsTop is true, the bottom otherwise.
//Confidence grows by 0.25 per non-empty band and is capped at 1.
func InferFormation(obs []Observation, lines int, defendsTop bool) Formation {
	if len(obs) < utils.MinFormationSamples {
		return UnknownFormation()
	}
	if lines < 1 {
		lines = DefaultFormationLines
	}

	frames := make(map[int]struct{})
	minY, maxY := math.Inf(1), math.Inf(-1)
	ys := make([]float64, len(obs))
	for i, o := range obs {
		_, y := o.Box.Center()
		ys[i] = y
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
		frames[o.FrameIndex] = struct{}{}
	}

	counts := make([]int, lines)
	span := maxY - minY
	for _, y := range ys {
		line := 0
		if span > 0 {
			line = utils.ClampInt(int(math.Floor((y-minY)/span*float64(lines))), 0, lines-1)
		}
		counts[line]++
	}

	if !defendsTop {
		for i, j := 0, len(counts)-1; i < j; i, j = i+1, j-1 {
			counts[i], counts[j] = counts[j], counts[i]
		}
	}

	occupancy := make([]int, 0, lines)
	parts := make([]string, 0, lines)
	for _, c := range counts {
		n := int(math.Round(float64(c) / float64(len(frames))))
		if n == 0 {
			continue
		}
		occupancy = append(occupancy, n)
		parts = append(parts, strconv.Itoa(n))
	}

	if len(occupancy) == 0 {
		return UnknownFormation()
	}

	return Formation{
		Descriptor: strings.Join(parts, "-"),
		Confidence: math.Min(1, 0.25*float64(len(occupancy))),
		Lines:      occupancy,
	}
}

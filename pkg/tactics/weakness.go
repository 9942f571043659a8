package tactics

import (
	"fmt"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
)

//ownRows returns the two grid rows on the half a team defends
func ownRows(defendsTop bool) []int {
	if defendsTop {
		return []int{0, 1}
	}
	return []int{utils.ZoneRows - 2, utils.ZoneRows - 1}
}

func ownZones(defendsTop bool) []string {
	zones := make([]string, 0, 2*utils.ZoneColumns)
	for _, row := range ownRows(defendsTop) {
		zones = append(zones, utils.ZoneNames[row*utils.ZoneColumns:(row+1)*utils.ZoneColumns]...)
	}
	return zones
}

//DetectWeaknesses scans frames in order and reports every (frame, team) where fewer than threshold players of
//the team stand in the zones of the half it defends. Frames whose detection failed are skipped, as is a team with
//no labelled player in a frame, so an unobserved cluster never yields findings.
//At most max findings are returned, the earliest ones.
func DetectWeaknesses(frames []video.FrameDetections, defendsTop [2]bool, threshold, max int) []Weakness {
	weaknesses := make([]Weakness, 0)
	zones := [2][]string{ownZones(defendsTop[0]), ownZones(defendsTop[1])}

	for _, f := range frames {
		if f.Err != "" {
			continue
		}

		var inZones, seen [2]int
		for _, d := range f.Detections {
			if !d.IsPerson() || (d.Team != utils.TeamA && d.Team != utils.TeamB) {
				continue
			}
			seen[d.Team]++
			if utils.InSlice(video.MapDetectionZone(d.Box, f.Width, f.Height), zones[d.Team]) {
				inZones[d.Team]++
			}
		}

		for team := utils.TeamA; team <= utils.TeamB; team++ {
			if seen[team] == 0 || inZones[team] >= threshold {
				continue
			}
			if len(weaknesses) >= max {
				return weaknesses
			}

			weaknesses = append(weaknesses, Weakness{
				WeaknessID:     len(weaknesses),
				FrameNumber:    f.FrameIndex,
				Team:           TeamKey(team),
				Zones:          zones[team],
				PlayersInZones: inZones[team],
				Description:    fmt.Sprintf("Defensive line underloaded: %d players in own half (expected at least %d)", inZones[team], threshold),
				Severity:       utils.WeaknessSeverity,
				Recommendation: "Increase defensive coverage",
			})
		}
	}

	return weaknesses
}

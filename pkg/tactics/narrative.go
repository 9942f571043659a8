package tactics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

//TextGenerator is the external text-generation collaborator
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, maxOutput int) (string, error)
}

//Aggregates are the local statistics a narrative is built from
type Aggregates struct {
	DurationSeconds    int
	FramesAnalyzed     int
	Resolution         string
	TotalPlayers       int
	AvgPlayersPerFrame float64
	TeamA, TeamB       TeamSummary
	Weaknesses         []Weakness
}

//AggregatesOf extracts the narrative inputs from a synthesized report
func AggregatesOf(r *Report) Aggregates {
	return Aggregates{
		DurationSeconds:    r.Metadata.DurationSeconds,
		FramesAnalyzed:     r.Statistics.FramesAnalyzed,
		Resolution:         r.Metadata.VideoResolution,
		TotalPlayers:       r.Statistics.TotalPlayers,
		AvgPlayersPerFrame: r.Statistics.AvgPlayersPerFrame,
		TeamA:              r.Teams.TeamA,
		TeamB:              r.Teams.TeamB,
		Weaknesses:         r.TacticalAnalysis.Weaknesses,
	}
}

//BuildPrompt renders the structured prompt sent to the text generator
func BuildPrompt(agg Aggregates) string {
	weaknesses := "None identified"
	if len(agg.Weaknesses) > 0 {
		if b, err := json.MarshalIndent(agg.Weaknesses, "", "  "); err == nil {
			weaknesses = string(b)
		}
	}

	var sb strings.Builder
	sb.WriteString("You are a professional football tactical analyst. Analyze this match data:\n\n")
	sb.WriteString("VIDEO METADATA:\n")
	fmt.Fprintf(&sb, "- Duration: %ds\n", agg.DurationSeconds)
	fmt.Fprintf(&sb, "- Frames analyzed: %d\n", agg.FramesAnalyzed)
	fmt.Fprintf(&sb, "- Resolution: %s\n\n", agg.Resolution)
	sb.WriteString("FORMATIONS DETECTED:\n")
	fmt.Fprintf(&sb, "- Team A: %s (confidence %.2f)\n", agg.TeamA.Formation, agg.TeamA.FormationConfidence)
	fmt.Fprintf(&sb, "- Team B: %s (confidence %.2f)\n\n", agg.TeamB.Formation, agg.TeamB.FormationConfidence)
	sb.WriteString("TACTICAL WEAKNESSES FOUND:\n")
	sb.WriteString(weaknesses)
	sb.WriteString("\n\nDETECTION SUMMARY:\n")
	fmt.Fprintf(&sb, "- Players detected: %d\n", agg.TotalPlayers)
	fmt.Fprintf(&sb, "- Average players per frame: %.1f\n\n", agg.AvgPlayersPerFrame)
	sb.WriteString("Provide a concise tactical analysis (max 1000 characters) including:\n")
	sb.WriteString("1. Formation effectiveness assessment\n")
	sb.WriteString("2. Key tactical weaknesses to exploit\n")
	sb.WriteString("3. Defensive vulnerabilities\n")
	sb.WriteString("4. 3 specific recommended strategies\n")
	sb.WriteString("5. Priority areas to review\n\n")
	sb.WriteString("Be direct and actionable for a professional football coach.")

	return sb.String()
}

//TemplateNarrative is the deterministic narrative used whenever the text generator is unavailable
func TemplateNarrative(agg Aggregates) string {
	var sb strings.Builder
	sb.WriteString("TACTICAL ANALYSIS REPORT (Basic Mode)\n\n")
	sb.WriteString("FORMATIONS:\n")
	fmt.Fprintf(&sb, "- Team A: %s (confidence %.2f)\n", agg.TeamA.Formation, agg.TeamA.FormationConfidence)
	fmt.Fprintf(&sb, "- Team B: %s (confidence %.2f)\n\n", agg.TeamB.Formation, agg.TeamB.FormationConfidence)
	sb.WriteString("KEY FINDINGS:\n")
	fmt.Fprintf(&sb, "- %d tactical weaknesses identified\n", len(agg.Weaknesses))
	fmt.Fprintf(&sb, "- Analysis based on %d frames\n", agg.FramesAnalyzed)
	fmt.Fprintf(&sb, "- Average players per frame: %.1f\n\n", agg.AvgPlayersPerFrame)
	sb.WriteString("RECOMMENDATIONS:\n")
	sb.WriteString("1. Review defensive positioning in identified weak frames\n")
	sb.WriteString("2. Analyze formation transitions\n")
	sb.WriteString("3. Focus on exploiting identified vulnerabilities")

	return sb.String()
}

package tactics

import "github.com/chenBenjamin97/football-tactics/pkg/video"

//Report is the terminal result of one video analysis. After Synthesize returns it, the pipeline only fills in
//storage locations (Weakness.AnnotatedURL and Storage.JSONURL) before handing it out; it is not modified afterwards.
type Report struct {
	Status           string           `json:"status" yaml:"status"`
	VideoID          string           `json:"video_id" yaml:"video_id"`
	Teams            Teams            `json:"teams" yaml:"teams"`
	TacticalAnalysis TacticalAnalysis `json:"tactical_analysis" yaml:"tactical_analysis"`
	PlayerAnalysis   []PlayerSummary  `json:"player_analysis" yaml:"player_analysis"`
	Storage          Storage          `json:"storage" yaml:"storage"`
	Metadata         Metadata         `json:"metadata" yaml:"metadata"`
	Statistics       Statistics       `json:"statistics" yaml:"statistics"`
	FrameErrors      []FrameError     `json:"frame_errors" yaml:"frame_errors"`
}

type Teams struct {
	TeamA TeamSummary `json:"team_a" yaml:"team_a"`
	TeamB TeamSummary `json:"team_b" yaml:"team_b"`
}

//TeamSummary describes one colour cluster. team_a is cluster 0, which real team that is varies per video.
type TeamSummary struct {
	Formation           string    `json:"formation" yaml:"formation"`
	FormationConfidence float64   `json:"formation_confidence" yaml:"formation_confidence"`
	PlayerCount         int       `json:"player_count" yaml:"player_count"`
	Color               video.RGB `json:"color" yaml:"color"`
	DefendsTop          bool      `json:"defends_top" yaml:"defends_top"`
}

type TacticalAnalysis struct {
	Weaknesses []Weakness `json:"weaknesses" yaml:"weaknesses"`
	Insights   string     `json:"insights" yaml:"insights"`
	//NarrativeSource is utils.NarrativeAI or utils.NarrativeTemplate
	NarrativeSource string `json:"narrative_source" yaml:"narrative_source"`
}

type Weakness struct {
	WeaknessID     int      `json:"weakness_id" yaml:"weakness_id"`
	FrameNumber    int      `json:"frame_number" yaml:"frame_number"`
	Team           string   `json:"team" yaml:"team"`
	Zones          []string `json:"zones" yaml:"zones"`
	PlayersInZones int      `json:"players_in_zones" yaml:"players_in_zones"`
	Description    string   `json:"description" yaml:"description"`
	Severity       string   `json:"severity" yaml:"severity"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
	AnnotatedURL   string   `json:"annotated_frame_url,omitempty" yaml:"annotated_frame_url,omitempty"`
}

type PlayerSummary struct {
	TrackID       int            `json:"track_id" yaml:"track_id"`
	Team          string         `json:"team" yaml:"team"`
	Observations  int            `json:"observations" yaml:"observations"`
	FirstFrame    int            `json:"first_frame" yaml:"first_frame"`
	LastFrame     int            `json:"last_frame" yaml:"last_frame"`
	ZoneOccupancy map[string]int `json:"zone_occupancy" yaml:"zone_occupancy"`
	DominantZone  string         `json:"dominant_zone" yaml:"dominant_zone"`
}

type Storage struct {
	VideoURL string `json:"video_url" yaml:"video_url"`
	JSONURL  string `json:"json_url" yaml:"json_url"`
}

type Metadata struct {
	DurationSeconds int     `json:"duration_seconds" yaml:"duration_seconds"`
	OriginalFPS     float64 `json:"original_fps" yaml:"original_fps"`
	ExtractionFPS   float64 `json:"extraction_fps" yaml:"extraction_fps"`
	TotalFrames     int     `json:"total_frames" yaml:"total_frames"`
	VideoResolution string  `json:"video_resolution" yaml:"video_resolution"`
	VideoID         string  `json:"video_id" yaml:"video_id"`
	CreatedAt       string  `json:"created_at" yaml:"created_at"`
}

type Statistics struct {
	FramesAnalyzed     int     `json:"frames_analyzed" yaml:"frames_analyzed"`
	TotalPlayers       int     `json:"total_players" yaml:"total_players"`
	TotalBalls         int     `json:"total_balls" yaml:"total_balls"`
	AvgPlayersPerFrame float64 `json:"avg_players_per_frame" yaml:"avg_players_per_frame"`
	WeaknessesFound    int     `json:"weaknesses_found" yaml:"weaknesses_found"`
	FailedFrames       int     `json:"failed_frames" yaml:"failed_frames"`
	Tracks             int     `json:"tracks" yaml:"tracks"`
}

type FrameError struct {
	FrameNumber int    `json:"frame_number" yaml:"frame_number"`
	Error       string `json:"error" yaml:"error"`
}

//TeamKey returns the report key of a cluster label
func TeamKey(label int) string {
	if label == 1 {
		return "team_b"
	}
	return "team_a"
}

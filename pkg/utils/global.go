package utils

//PersonClass is the enum represents an object detected as a person (player, referee, goalkeeper)
const PersonClass = "person"

//BallClass is the enum represents an object detected as a ball
const BallClass = "ball"

//COCOPersonID is the COCO class index of "person"
const COCOPersonID = 0

//COCOBallID is the COCO class index of "sports ball"
const COCOBallID = 32

//UnassignedTeam marks a detection the team classifier did not label yet
const UnassignedTeam = -1

//UnassignedTrack marks a detection the identity tracker did not bind yet
const UnassignedTrack = -1

//TeamA and TeamB are the two cluster labels. Which real team each one is changes between videos.
const (
	TeamA = 0
	TeamB = 1
)

//UnknownZone is returned for positions outside the frame
const UnknownZone = "unknown"

//UnknownFormation is returned when there are not enough positions to infer a formation
const UnknownFormation = "unknown"

//ZoneColumns and ZoneRows define the pitch grid over normalized frame coordinates
const (
	ZoneColumns = 3
	ZoneRows    = 4
)

//ZoneNames is indexed by row*ZoneColumns + column. Row 0 is the top of the frame.
var ZoneNames = []string{
	"top_left", "top_center", "top_right",
	"upper_mid_left", "upper_mid_center", "upper_mid_right",
	"lower_mid_left", "lower_mid_center", "lower_mid_right",
	"bottom_left", "bottom_center", "bottom_right",
}

//MinFormationSamples is the least number of player positions needed to infer a formation
const MinFormationSamples = 5

//WeaknessSeverity is the severity tag given to every under-population finding
const WeaknessSeverity = "medium"

//MaxWeaknesses caps reported weaknesses per analysis
const MaxWeaknesses = 5

//DefensiveThreshold is the least number of players expected in a team's own-half rows
const DefensiveThreshold = 4

//MinTrackIoU is the least overlap between a track's last box and a detection for them to match
const MinTrackIoU = 0.3

//JPEGQuality for persisted frames
const JPEGQuality = 85

//Blob storage folders
const (
	VideosFolder  = "videos"
	FramesFolder  = "frames"
	ResultsFolder = "results"
)

//AllowedVideoExtensions lists upload formats accepted by the API
var AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".webm"}

//Narrative sources
const (
	NarrativeAI       = "ai"
	NarrativeTemplate = "template"
)

//StatusSuccess is the report status for every produced report
const StatusSuccess = "success"

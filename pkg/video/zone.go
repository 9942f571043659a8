package video

import (
	"math"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

//MapZone returns the name of the pitch zone containing (x, y), on a 3 columns x 4 rows grid over the frame.
//Positions outside [0,width) x [0,height) map to utils.UnknownZone.
func MapZone(x, y float64, width, height int) string {
	if width <= 0 || height <= 0 || math.IsNaN(x) || math.IsNaN(y) {
		return utils.UnknownZone
	}
	if x < 0 || y < 0 || x >= float64(width) || y >= float64(height) {
		return utils.UnknownZone
	}

	column := utils.ClampInt(int(math.Floor(float64(utils.ZoneColumns)*x/float64(width))), 0, utils.ZoneColumns-1)
	row := utils.ClampInt(int(math.Floor(float64(utils.ZoneRows)*y/float64(height))), 0, utils.ZoneRows-1)

	index := row*utils.ZoneColumns + column
	if index < 0 || index >= len(utils.ZoneNames) {
		return utils.UnknownZone
	}
	return utils.ZoneNames[index]
}

//ZoneRow returns the grid row of a zone name, -1 when unknown
func ZoneRow(zone string) int {
	for i, name := range utils.ZoneNames {
		if name == zone {
			return i / utils.ZoneColumns
		}
	}
	return -1
}

//MapDetectionZone maps the center of the box
func MapDetectionZone(b BoundingBox, width, height int) string {
	x, y := b.Center()
	return MapZone(x, y, width, height)
}

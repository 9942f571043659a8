package video

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

//ErrOutOfOrder is returned when frames are fed to the tracker in non increasing index order
var ErrOutOfOrder = errors.New("video: tracker frames out of order")

//Tracker associates per-frame person boxes into persistent identities.
//It matches greedily by IoU against each live track's last box: highest overlap first,
//ties go to the lower track id and then the lower detection index, so output is reproducible.
//A track unmatched for more than maxStaleness consecutive frames is retired and never matched again.
type Tracker struct {
	maxStaleness int
	minIoU       float64
	nextID       int
	lastFrame    int
	live         []*Track
	all          []*Track
}

//NewTracker returns a tracker with no live tracks; ids start at 1
func NewTracker(maxStaleness int) *Tracker {
	if maxStaleness < 1 {
		maxStaleness = 1
	}
	return &Tracker{
		maxStaleness: maxStaleness,
		minIoU:       utils.MinTrackIoU,
		nextID:       1,
		lastFrame:    -1,
	}
}

type trackPair struct {
	track int //index into live
	det   int
	iou   float64
}

//Update consumes the person boxes of one frame and returns the track id of each box, aligned with boxes
func (t *Tracker) Update(frameIndex int, boxes []BoundingBox) ([]int, error) {
	if frameIndex <= t.lastFrame {
		return nil, fmt.Errorf("%w: got frame %d after %d", ErrOutOfOrder, frameIndex, t.lastFrame)
	}
	t.lastFrame = frameIndex

	pairs := make([]trackPair, 0)
	for ti, tr := range t.live {
		last := tr.lastBox()
		for di, b := range boxes {
			if iou := IoU(last, b); iou >= t.minIoU {
				pairs = append(pairs, trackPair{track: ti, det: di, iou: iou})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].iou != pairs[b].iou {
			return pairs[a].iou > pairs[b].iou
		}
		if t.live[pairs[a].track].ID != t.live[pairs[b].track].ID {
			return t.live[pairs[a].track].ID < t.live[pairs[b].track].ID
		}
		return pairs[a].det < pairs[b].det
	})

	ids := make([]int, len(boxes))
	for i := range ids {
		ids[i] = utils.UnassignedTrack
	}
	trackMatched := make([]bool, len(t.live))

	for _, p := range pairs {
		if trackMatched[p.track] || ids[p.det] != utils.UnassignedTrack {
			continue
		}
		tr := t.live[p.track]
		tr.Observations = append(tr.Observations, Observation{FrameIndex: frameIndex, Box: boxes[p.det]})
		tr.Staleness = 0
		tr.State = TrackActive
		trackMatched[p.track] = true
		ids[p.det] = tr.ID
	}

	//age unmatched tracks, retire the ones past the threshold
	stillLive := make([]*Track, 0, len(t.live))
	for ti, tr := range t.live {
		if !trackMatched[ti] {
			tr.Staleness++
			if tr.Staleness > t.maxStaleness {
				tr.State = TrackRetired
				continue
			}
			tr.State = TrackStale
		}
		stillLive = append(stillLive, tr)
	}

	//unmatched detections open new tracks
	for di, b := range boxes {
		if ids[di] != utils.UnassignedTrack {
			continue
		}
		tr := &Track{
			ID:           t.nextID,
			Observations: []Observation{{FrameIndex: frameIndex, Box: b}},
			State:        TrackActive,
		}
		t.nextID++
		ids[di] = tr.ID
		stillLive = append(stillLive, tr)
		t.all = append(t.all, tr)
	}

	t.live = stillLive
	return ids, nil
}

//Live returns the number of tracks still eligible for matching
func (t *Tracker) Live() int {
	return len(t.live)
}

//Tracks returns every track ever created, retired ones included, ordered by id
func (t *Tracker) Tracks() []*Track {
	out := make([]*Track, len(t.all))
	copy(out, t.all)
	return out
}

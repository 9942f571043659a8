package video

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

//SuppressOverlaps applies class-wise non-maximum suppression through gocv.NMSBoxes.
//Each class is suppressed on its own; boxes are rounded to pixels for the overlap test only, kept detections
//carry their original boxes. The result is sorted by descending confidence (ties keep input order), so
//running it again on its own output removes nothing.
func SuppressOverlaps(dets []Detection, iouThresh float64) []Detection {
	if len(dets) == 0 {
		return []Detection{}
	}

	classes := make([]string, 0)
	byClass := make(map[string][]int)
	for i, d := range dets {
		if _, ok := byClass[d.Class]; !ok {
			classes = append(classes, d.Class)
		}
		byClass[d.Class] = append(byClass[d.Class], i)
	}

	keep := make([]int, 0, len(dets))
	for _, class := range classes {
		idxs := byClass[class]
		rects := make([]image.Rectangle, len(idxs))
		scores := make([]float32, len(idxs))
		for j, i := range idxs {
			rects[j] = pixelRect(dets[i].Box)
			scores[j] = float32(dets[i].Confidence)
		}

		//scores were filtered by the caller already
		for _, j := range gocv.NMSBoxes(rects, scores, 0, float32(iouThresh)) {
			keep = append(keep, idxs[j])
		}
	}

	sort.Slice(keep, func(a, b int) bool {
		ca, cb := dets[keep[a]].Confidence, dets[keep[b]].Confidence
		if ca != cb {
			return ca > cb
		}
		return keep[a] < keep[b]
	})

	kept := make([]Detection, 0, len(keep))
	for _, i := range keep {
		kept = append(kept, dets[i])
	}
	return kept
}

func pixelRect(b BoundingBox) image.Rectangle {
	return image.Rect(int(math.Round(b.Xmin)), int(math.Round(b.Ymin)), int(math.Round(b.Xmax)), int(math.Round(b.Ymax)))
}

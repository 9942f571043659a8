package video

import (
	"image"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

//Jersey crop, as fractions of the box: the upper-middle torso, away from grass, shorts and background
const (
	cropTop    = 0.2
	cropBottom = 0.6
	cropLeft   = 0.3
	cropRight  = 0.7
)

//TeamResult is the outcome of clustering one video's detections into two teams
type TeamResult struct {
	//Labels is aligned with the input detections
	Labels []int
	//Colors are the cluster centroids, indexed by label
	Colors [2]RGB
	//Clustered is false when there were too few colours and every detection got TeamA
	Clustered bool
}

//ExtractColor returns the mean colour of the jersey crop of given box.
//Returns false when the crop is empty after clipping to the frame.
func ExtractColor(frame gocv.Mat, b BoundingBox) (RGB, bool) {
	w, h := b.Width(), b.Height()
	crop := BoundingBox{
		Xmin: b.Xmin + cropLeft*w,
		Xmax: b.Xmin + cropRight*w,
		Ymin: b.Ymin + cropTop*h,
		Ymax: b.Ymin + cropBottom*h,
	}.clip(frame.Cols(), frame.Rows())

	rect := image.Rect(int(crop.Xmin), int(crop.Ymin), int(crop.Xmax), int(crop.Ymax))
	if rect.Empty() {
		return RGB{}, false
	}

	roi := frame.Region(rect)
	defer roi.Close()

	mean := roi.Mean() //frames are BGR
	return RGB{R: mean.Val3, G: mean.Val2, B: mean.Val1}, true
}

//AssignTeams clusters the jersey colours of all person detections of a video into two labels.
//Fewer than 2 distinct colours skips clustering and every detection gets TeamA; otherwise detections without a
//colour stay utils.UnassignedTeam.
//Initial labels are derived deterministically, so identical input yields identical labels.
func AssignTeams(dets []Detection) TeamResult {
	res := TeamResult{Labels: make([]int, len(dets))}

	samples := make([]RGB, 0, len(dets))
	sampleIdx := make([]int, 0, len(dets))
	for i, d := range dets {
		if d.HasColor {
			samples = append(samples, d.Color)
			sampleIdx = append(sampleIdx, i)
		}
	}

	if !hasTwoDistinct(samples) {
		for i := range res.Labels {
			res.Labels[i] = utils.TeamA
		}
		if len(samples) > 0 {
			res.Colors[utils.TeamA] = meanColor(samples)
		}
		return res
	}

	for i := range res.Labels {
		res.Labels[i] = utils.UnassignedTeam
	}
	labels, centers := kmeans2(samples)
	for j, i := range sampleIdx {
		res.Labels[i] = labels[j]
	}
	res.Colors = centers
	res.Clustered = true

	return res
}

func hasTwoDistinct(samples []RGB) bool {
	for i := 1; i < len(samples); i++ {
		if samples[i] != samples[0] {
			return true
		}
	}
	return false
}

func meanColor(samples []RGB) RGB {
	var m RGB
	for _, s := range samples {
		m.R += s.R
		m.G += s.G
		m.B += s.B
	}
	n := float64(len(samples))
	return RGB{R: m.R / n, G: m.G / n, B: m.B / n}
}

//kmeans2 runs OpenCV k-means with k=2 from deterministic initial labels:
//seed 0 is the sample farthest from the mean, seed 1 the sample farthest from seed 0.
func kmeans2(samples []RGB) ([]int, [2]RGB) {
	n := len(samples)
	mean := meanColor(samples)

	seed0 := farthest(samples, mean)
	seed1 := farthest(samples, samples[seed0])

	data := gocv.NewMatWithSize(n, 3, gocv.MatTypeCV32F)
	defer data.Close()
	labels := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV32S)
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	for i, s := range samples {
		data.SetFloatAt(i, 0, float32(s.R))
		data.SetFloatAt(i, 1, float32(s.G))
		data.SetFloatAt(i, 2, float32(s.B))

		label := int32(0)
		if s.distSq(samples[seed1]) < s.distSq(samples[seed0]) {
			label = 1
		}
		labels.SetIntAt(i, 0, label)
	}

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 20, 0.1)
	gocv.KMeans(data, 2, &labels, criteria, 1, gocv.KMeansUseInitialLabels, &centers)

	out := make([]int, n)
	for i := range out {
		out[i] = int(labels.GetIntAt(i, 0))
	}

	var colors [2]RGB
	for c := 0; c < 2; c++ {
		colors[c] = RGB{
			R: float64(centers.GetFloatAt(c, 0)),
			G: float64(centers.GetFloatAt(c, 1)),
			B: float64(centers.GetFloatAt(c, 2)),
		}
	}

	return out, colors
}

func farthest(samples []RGB, from RGB) int {
	best, bestDist := 0, -1.0
	for i, s := range samples {
		if d := s.distSq(from); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

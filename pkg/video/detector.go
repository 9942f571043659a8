package video

import (
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"sync"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"gocv.io/x/gocv"
)

//ErrInference is returned when running the model on a frame fails
var ErrInference = errors.New("video: inference failed")

//Thresholds are the per-request postprocessing thresholds
type Thresholds struct {
	Confidence float64
	NMS        float64
}

//Detector finds persons (and optionally the ball) in one frame.
//Implementations must be safe for concurrent calls.
type Detector interface {
	Detect(frame gocv.Mat, th Thresholds) ([]Detection, error)
	Close() error
}

//YOLOXConfig holds YOLOX detector configuration
type YOLOXConfig struct {
	ModelPath   string
	InputWidth  int
	InputHeight int
	//SwapRB reorders BGR frames to RGB before inference
	SwapRB bool
	//Scale multiplies pixel values, 1/255 maps them to [0,1]
	Scale float64
	//Decoded is true when the exported model already decodes grid offsets into boxes
	Decoded bool
	//DetectBall keeps "sports ball" predictions as class ball
	DetectBall bool
}

//DefaultYOLOXConfig returns defaults for a YOLOX-S ONNX export
func DefaultYOLOXConfig() YOLOXConfig {
	return YOLOXConfig{
		ModelPath:   "models/yolox_s.onnx",
		InputWidth:  640,
		InputHeight: 640,
		SwapRB:      true,
		Scale:       1.0 / 255.0,
		Decoded:     false,
		DetectBall:  true,
	}
}

var yoloxStrides = []int{8, 16, 32}

//YOLOXDetector runs a YOLOX ONNX model through OpenCV DNN.
//One instance is shared by every analysis, calls are serialized since a gocv.Net is not safe for concurrent Forward.
type YOLOXDetector struct {
	net gocv.Net
	cfg YOLOXConfig
	mu  sync.Mutex
}

//NewYOLOX loads the model once, the returned handle is passed to each analysis
func NewYOLOX(cfg YOLOXConfig) (*YOLOXDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("NewYOLOX: model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("NewYOLOX: failed to load model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.Printf("NewYOLOX: loaded '%s' (%dx%d input)", cfg.ModelPath, cfg.InputWidth, cfg.InputHeight)
	return &YOLOXDetector{net: net, cfg: cfg}, nil
}

//Detect runs the model on a BGR frame and returns boxes in frame pixel coordinates
func (d *YOLOXDetector) Detect(frame gocv.Mat, th Thresholds) ([]Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrInference)
	}

	frameW, frameH := frame.Cols(), frame.Rows()

	blob := gocv.BlobFromImage(frame, d.cfg.Scale, image.Pt(d.cfg.InputWidth, d.cfg.InputHeight), gocv.NewScalar(0, 0, 0, 0), d.cfg.SwapRB, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("%w: empty output", ErrInference)
	}

	size := output.Size()
	if len(size) != 3 || size[2] < 6 {
		return nil, fmt.Errorf("%w: unexpected output shape %v", ErrInference, size)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	preds := parsePredictions(data, size[1], size[2])
	if !d.cfg.Decoded {
		decodeGrid(preds, d.cfg.InputWidth, d.cfg.InputHeight)
	}

	return Postprocess(preds, PostprocessConfig{
		Thresholds: th,
		RatioX:     float64(frameW) / float64(d.cfg.InputWidth),
		RatioY:     float64(frameH) / float64(d.cfg.InputHeight),
		FrameW:     frameW,
		FrameH:     frameH,
		DetectBall: d.cfg.DetectBall,
	}), nil
}

//Close releases the detector resources
func (d *YOLOXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

//Prediction is one raw model row, box center/size in model-input coordinates
type Prediction struct {
	CX, CY, W, H float64
	Objectness   float64
	ClassScores  []float64
}

//parsePredictions splits a [n, 5+classes] float tensor into rows
func parsePredictions(data []float32, n, stride int) []Prediction {
	preds := make([]Prediction, 0, n)
	for i := 0; i < n; i++ {
		row := data[i*stride : (i+1)*stride]
		p := Prediction{
			CX:          float64(row[0]),
			CY:          float64(row[1]),
			W:           float64(row[2]),
			H:           float64(row[3]),
			Objectness:  float64(row[4]),
			ClassScores: make([]float64, stride-5),
		}
		for c := 5; c < stride; c++ {
			p.ClassScores[c-5] = float64(row[c])
		}
		preds = append(preds, p)
	}
	return preds
}

//decodeGrid turns raw YOLOX grid offsets into input-space boxes (strides 8, 16, 32, row major per stride)
func decodeGrid(preds []Prediction, inputW, inputH int) {
	k := 0
	for _, stride := range yoloxStrides {
		hsize, wsize := inputH/stride, inputW/stride
		s := float64(stride)
		for y := 0; y < hsize; y++ {
			for x := 0; x < wsize; x++ {
				if k >= len(preds) {
					return
				}
				p := &preds[k]
				p.CX = (p.CX + float64(x)) * s
				p.CY = (p.CY + float64(y)) * s
				p.W = math.Exp(p.W) * s
				p.H = math.Exp(p.H) * s
				k++
			}
		}
	}
}

//PostprocessConfig carries thresholds and the resize ratio recorded at preprocessing
type PostprocessConfig struct {
	Thresholds
	RatioX, RatioY float64
	FrameW, FrameH int
	DetectBall     bool
}

//Postprocess filters by objectness*class score, keeps target classes, applies class-wise NMS
//and rescales the survivors to frame coordinates
func Postprocess(preds []Prediction, cfg PostprocessConfig) []Detection {
	candidates := make([]Detection, 0)
	for _, p := range preds {
		classID, classScore := bestClass(p.ClassScores)
		if classID < 0 {
			continue
		}

		score := p.Objectness * classScore
		if score < cfg.Confidence {
			continue
		}

		class := targetClass(classID, cfg.DetectBall)
		if class == "" {
			continue
		}

		box := BoundingBox{
			Xmin: (p.CX - p.W/2) * cfg.RatioX,
			Ymin: (p.CY - p.H/2) * cfg.RatioY,
			Xmax: (p.CX + p.W/2) * cfg.RatioX,
			Ymax: (p.CY + p.H/2) * cfg.RatioY,
		}
		if cfg.FrameW > 0 && cfg.FrameH > 0 {
			box = box.clip(cfg.FrameW, cfg.FrameH)
		}
		if box.Area() == 0 {
			continue
		}

		candidates = append(candidates, NewDetection(box, score, class))
	}

	return SuppressOverlaps(candidates, cfg.NMS)
}

func bestClass(scores []float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, s := range scores {
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func targetClass(cocoID int, detectBall bool) string {
	switch {
	case cocoID == utils.COCOPersonID:
		return utils.PersonClass
	case cocoID == utils.COCOBallID && detectBall:
		return utils.BallClass
	default:
		return ""
	}
}

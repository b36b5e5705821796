package vision

import (
	"fmt"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Candidate is an untracked detection produced by the detector.
type Candidate struct {
	BBox       [4]float32 // x1, y1, x2, y2 (pixel coordinates of the model input)
	Confidence float32
	ClassID    int
}

// DetectorOptions describes the exported YOLOv8 head.
type DetectorOptions struct {
	InputW     int
	InputH     int
	NumClasses int
	ClassIDs   []int // classes kept as participants, empty keeps all
}

// Detector runs a YOLOv8 detection model exported to ONNX.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	numClasses   int
	numAnchors   int
	classes      map[int]bool
}

// yoloStrides are the feature map strides of the YOLOv8 detection head.
var yoloStrides = []int{8, 16, 32}

// NewDetector loads the ONNX model.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewDetector(modelPath string, o DetectorOptions, opts *ort.SessionOptions) (*Detector, error) {
	if o.InputW <= 0 || o.InputH <= 0 || o.InputW%32 != 0 || o.InputH%32 != 0 {
		return nil, fmt.Errorf("input size %dx%d must be a positive multiple of 32", o.InputW, o.InputH)
	}
	if o.NumClasses <= 0 {
		return nil, fmt.Errorf("num classes must be positive, got %d", o.NumClasses)
	}

	anchors := NumAnchors(o.InputW, o.InputH)

	inputShape := ort.NewShape(1, 3, int64(o.InputH), int64(o.InputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// output0: [1, 4+nc, anchors], rows are cx, cy, w, h, class scores
	outputShape := ort.NewShape(1, int64(4+o.NumClasses), int64(anchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       o.InputW,
		inputH:       o.InputH,
		numClasses:   o.NumClasses,
		numAnchors:   anchors,
		classes:      classSet(o.ClassIDs),
	}, nil
}

// Detect runs the model on a preprocessed image.
// imgData must be CHW [3, inputH, inputW], RGB scaled to [0,1].
func (d *Detector) Detect(imgData []float32, confThreshold, iouThreshold float32) ([]Candidate, error) {
	inputSlice := d.inputTensor.GetData()
	if len(imgData) != len(inputSlice) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(imgData), len(inputSlice))
	}
	copy(inputSlice, imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	candidates := decodeYOLO(d.outputTensor.GetData(), d.numClasses, d.numAnchors, confThreshold, d.classes)
	candidates = clampToFrame(candidates, d.inputW, d.inputH)
	return nms(candidates, iouThreshold), nil
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
}

// NumAnchors returns the anchor count of a YOLOv8 head for the given input size.
func NumAnchors(w, h int) int {
	n := 0
	for _, s := range yoloStrides {
		n += (w / s) * (h / s)
	}
	return n
}

// decodeYOLO reads the channel-major [4+nc, anchors] output.
func decodeYOLO(out []float32, numClasses, anchors int, confThreshold float32, classes map[int]bool) []Candidate {
	var candidates []Candidate
	if len(out) < (4+numClasses)*anchors {
		return candidates
	}

	for a := 0; a < anchors; a++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := out[(4+c)*anchors+a]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 || bestScore < confThreshold {
			continue
		}
		if len(classes) > 0 && !classes[bestClass] {
			continue
		}

		cx := out[0*anchors+a]
		cy := out[1*anchors+a]
		w := out[2*anchors+a]
		h := out[3*anchors+a]

		candidates = append(candidates, Candidate{
			BBox:       [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			Confidence: bestScore,
			ClassID:    bestClass,
		})
	}
	return candidates
}

func clampToFrame(candidates []Candidate, w, h int) []Candidate {
	for i := range candidates {
		b := &candidates[i].BBox
		b[0] = clampF(b[0], 0, float32(w))
		b[1] = clampF(b[1], 0, float32(h))
		b[2] = clampF(b[2], 0, float32(w))
		b[3] = clampF(b[3], 0, float32(h))
	}
	return candidates
}

// nms performs class-aware Non-Maximum Suppression.
func nms(candidates []Candidate, iouThreshold float32) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(candidates); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if !keep[j] || candidates[i].ClassID != candidates[j].ClassID {
				continue
			}
			if iou(candidates[i].BBox, candidates[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []Candidate
	for i, c := range candidates {
		if keep[i] {
			result = append(result, c)
		}
	}
	return result
}

func iou(a, b [4]float32) float32 {
	x1 := float32(math.Max(float64(a[0]), float64(b[0])))
	y1 := float32(math.Max(float64(a[1]), float64(b[1])))
	x2 := float32(math.Min(float64(a[2]), float64(b[2])))
	y2 := float32(math.Min(float64(a[3]), float64(b[3])))

	intersection := float32(math.Max(0, float64(x2-x1))) * float32(math.Max(0, float64(y2-y1)))

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}

func classSet(ids []int) map[int]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func clampF(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package vision

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
)

// ImageNet normalization used by MobileNet style models.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	inputWidth  = 224
	inputHeight = 224
)

// Classifier labels images with an ONNX image classification model. The
// runtime, labels and session are loaded on first use.
type Classifier struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	libPath    string
	topK       int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	loaded  bool
}

func NewClassifier(modelPath, labelsPath, onnxLibPath string, topK int) *Classifier {
	if topK <= 0 {
		topK = 3
	}
	return &Classifier{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		libPath:    onnxLibPath,
		topK:       topK,
	}
}

// load must be called with mu held.
func (c *Classifier) load() error {
	if c.loaded {
		return nil
	}
	if c.libPath != "" {
		ort.SetSharedLibraryPath(c.libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	labels, err := loadLabels(c.labelsPath)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(c.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	input, err := ort.NewEmptyTensor[float32](inputs[0].Dimensions)
	if err != nil {
		return fmt.Errorf("onnx new input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](outputs[0].Dimensions)
	if err != nil {
		input.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(c.modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		output.Destroy()
		input.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}

	c.labels, c.input, c.output, c.session = labels, input, output, session
	c.loaded = true
	return nil
}

// Labels returns the top-k class names for img.
func (c *Classifier) Labels(img image.Image) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return nil, err
	}

	tensor := preprocess(img)
	in := c.input.GetData()
	if len(in) < len(tensor) {
		return nil, fmt.Errorf("input tensor size %d < preprocessed %d", len(in), len(tensor))
	}
	copy(in, tensor)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	return topLabels(c.output.GetData(), c.labels, c.topK), nil
}

func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	c.session.Destroy()
	c.input.Destroy()
	c.output.Destroy()
	c.loaded = false
}

func topLabels(scores []float32, labels []string, k int) []string {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]string, 0, k)
	for _, i := range idx {
		if len(out) == k {
			break
		}
		if i < len(labels) && labels[i] != "" {
			out = append(out, labels[i])
		}
	}
	return out
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// preprocess scales img to the model input and lays it out as NCHW float32
// with ImageNet normalization.
func preprocess(img image.Image) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, inputWidth, inputHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	const size = inputWidth * inputHeight
	out := make([]float32, 3*size)
	for y := 0; y < inputHeight; y++ {
		for x := 0; x < inputWidth; x++ {
			i := y*inputWidth + x
			c := dst.RGBAAt(x, y)
			out[0*size+i] = (float32(c.R)/255 - imagenetMean[0]) / imagenetStd[0]
			out[1*size+i] = (float32(c.G)/255 - imagenetMean[1]) / imagenetStd[1]
			out[2*size+i] = (float32(c.B)/255 - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return out
}

// Package dnn implements classify.Predictor on top of OpenCV's DNN
// module via gocv. It lives in its own Go module so the root module does
// not require OpenCV to build, the same split used for other heavy cgo
// backends.
package dnn

import (
	"bufio"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cameye/cameye/pkg/classify"
)

// Config locates a pretrained ONNX classification model and its labels.
type Config struct {
	ModelPath  string
	LabelsPath string
	// InputWidth and InputHeight are the model's expected input size.
	InputWidth  int
	InputHeight int
	// Softmax converts raw logits to probabilities. Leave false for
	// models that already emit probabilities.
	Softmax bool
	// Mean and Scale are the preprocessing parameters baked into the
	// model's training pipeline.
	Mean  gocv.Scalar
	Scale float64
}

// Classifier runs a pretrained image-classification network.
type Classifier struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
	cfg    Config
}

var _ classify.Predictor = (*Classifier)(nil)

// New loads the model and its labels.
func New(cfg Config) (*Classifier, error) {
	if cfg.Scale == 0 {
		cfg.Scale = 1.0 / 255.0
	}

	labels, err := readLabels(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("dnn: read labels: %w", err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("dnn: could not load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Classifier{
		net:    net,
		labels: labels,
		cfg:    cfg,
	}, nil
}

// Predict implements classify.Predictor.
func (c *Classifier) Predict(img image.Image) ([]classify.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("dnn: convert frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, c.cfg.Scale,
		image.Pt(c.cfg.InputWidth, c.cfg.InputHeight),
		c.cfg.Mean, true, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	scores := make([]float32, out.Total())
	for i := range scores {
		scores[i] = out.GetFloatAt(0, i)
	}
	if c.cfg.Softmax {
		softmax(scores)
	}

	predictions := make([]classify.Prediction, 0, len(scores))
	for i, score := range scores {
		label := fmt.Sprintf("class %d", i)
		if i < len(c.labels) {
			label = c.labels[i]
		}
		predictions = append(predictions, classify.Prediction{
			Label: label,
			Score: score,
		})
	}
	return predictions, nil
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	return labels, scanner.Err()
}

func softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - max))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}

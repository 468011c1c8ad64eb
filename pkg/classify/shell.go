package classify

import (
	"fmt"
	"io"

	"github.com/pion/logging"

	intlog "github.com/cameye/cameye/internal/logging"
	"github.com/cameye/cameye/pkg/frame"
)

// Renderer displays one batch of ranked predictions.
type Renderer interface {
	Render(predictions []Prediction)
}

// RendererFunc is a proxy type for Renderer.
type RendererFunc func(predictions []Prediction)

func (f RendererFunc) Render(predictions []Prediction) {
	f(predictions)
}

// NewWriterRenderer renders predictions as "label score%" lines to w.
func NewWriterRenderer(w io.Writer) Renderer {
	return RendererFunc(func(predictions []Prediction) {
		for _, p := range predictions {
			fmt.Fprintf(w, "%s %.1f%%\n", p.Label, p.Score*100)
		}
	})
}

// Shell connects the camera controller's frame delivery to the model:
// per delivered buffer it scales the frame to the model input, runs the
// predictor and renders the top-K ranked predictions. Predictor errors
// drop the frame; nothing propagates back into the controller.
type Shell struct {
	predictor Predictor
	renderer  Renderer
	topK      int
	inputW    int
	inputH    int
	log       logging.LeveledLogger
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithTopK caps how many ranked predictions are rendered.
func WithTopK(k int) ShellOption {
	return func(s *Shell) { s.topK = k }
}

// WithInputSize sets the model's expected input dimensions. Zero means
// frames are passed through at native resolution.
func WithInputSize(width, height int) ShellOption {
	return func(s *Shell) {
		s.inputW = width
		s.inputH = height
	}
}

// NewShell creates a shell around a loaded predictor.
func NewShell(p Predictor, r Renderer, opts ...ShellOption) *Shell {
	s := &Shell{
		predictor: p,
		renderer:  r,
		topK:      3,
		log:       intlog.NewLogger("classify"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnFrame consumes one delivered pixel buffer. Its signature matches the
// controller's frame callback.
func (s *Shell) OnFrame(buf *frame.Buffer) {
	img := buf.Image()
	if s.inputW > 0 && s.inputH > 0 {
		img = Fit(img, s.inputW, s.inputH)
	}

	predictions, err := s.predictor.Predict(img)
	if err != nil {
		s.log.Warnf("prediction failed, dropping frame: %v", err)
		return
	}

	s.renderer.Render(Rank(predictions, s.topK))
}

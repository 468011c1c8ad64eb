// Package classify is the presentation side of the pipeline: it feeds
// sampled frames to a pretrained image-classification model and renders
// the ranked predictions. The model itself is an opaque collaborator
// behind the Predictor interface; no inference code lives here.
package classify

import (
	"image"
	"sort"
)

// Prediction is one labeled score out of the model.
type Prediction struct {
	Label string
	Score float32
}

// Predictor is the external model: an image in, ranked labeled scores
// out. Implementations load and own their weights.
type Predictor interface {
	Predict(img image.Image) ([]Prediction, error)
}

// PredictorFunc is a proxy type for Predictor.
type PredictorFunc func(img image.Image) ([]Prediction, error)

func (f PredictorFunc) Predict(img image.Image) ([]Prediction, error) {
	return f(img)
}

// Rank sorts predictions by descending score (ties broken by label for
// stable output) and truncates to at most k. k <= 0 keeps everything.
func Rank(predictions []Prediction, k int) []Prediction {
	ranked := make([]Prediction, len(predictions))
	copy(ranked, predictions)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Label < ranked[j].Label
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

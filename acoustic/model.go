package acoustic

// Model is the black-box acoustic model boundary: it maps a feature
// sequence (one feature vector per frame) to raw per-frame, per-symbol
// scores of shape [frames × vocabulary]. The scores are unnormalized
// logits; use PosteriorFromLogits to make them safe for decoding.
type Model interface {
	Scores(features [][]float64) ([][]float64, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(features [][]float64) ([][]float64, error)

// Scores implements Model.
func (f ModelFunc) Scores(features [][]float64) ([][]float64, error) {
	return f(features)
}

package acoustic

import (
	"errors"
	"fmt"
	"math"

	"github.com/ieee0824/aligner-go/internal/mathutil"
)

// DefaultEpsilon is the probability floor applied before taking logs.
// A genuinely zero probability at a single frame would score every path
// through it as impossible and reject the whole utterance; flooring keeps
// such paths merely very unlikely.
const DefaultEpsilon = 1e-10

var (
	// ErrShapeMismatch is returned when the raw output width differs from
	// the vocabulary size or the rows are ragged.
	ErrShapeMismatch = errors.New("acoustic: shape mismatch")
	// ErrInvalidProbability is returned for out-of-range probability values.
	ErrInvalidProbability = errors.New("acoustic: invalid probability")
)

// Posterior is a read-only [frames × vocabulary] log-probability matrix,
// row-normalized and floored away from -Inf.
type Posterior struct {
	logp  mathutil.Mat
	width int
}

// PosteriorOption configures posterior construction.
type PosteriorOption func(*posteriorConfig)

type posteriorConfig struct {
	epsilon float64
}

// WithEpsilon overrides the probability floor.
func WithEpsilon(eps float64) PosteriorOption {
	return func(c *posteriorConfig) {
		if eps > 0 {
			c.epsilon = eps
		}
	}
}

// PosteriorFromLogits normalizes raw model logits into per-frame
// log-probabilities via a max-shifted log-softmax, then floors each entry
// at log(epsilon).
func PosteriorFromLogits(raw [][]float64, width int, opts ...PosteriorOption) (*Posterior, error) {
	cfg := applyOpts(opts)
	if err := checkShape(raw, width); err != nil {
		return nil, err
	}

	T := len(raw)
	logEps := math.Log(cfg.epsilon)
	logp := mathutil.NewMat(T, width)
	shifted := mathutil.NewVec(width)

	for t, row := range raw {
		maxv := row[0]
		for _, x := range row[1:] {
			if x > maxv {
				maxv = x
			}
		}
		for v, x := range row {
			shifted[v] = x - maxv
		}
		denom := mathutil.LogSumExp(shifted)
		for v := range row {
			lp := shifted[v] - denom
			if lp < logEps {
				lp = logEps
			}
			logp[t][v] = lp
		}
	}
	return &Posterior{logp: logp, width: width}, nil
}

// PosteriorFromProbs wraps an already-normalized probability matrix
// (rows summing to 1). Each probability is clamped to at least epsilon
// before the log is taken.
func PosteriorFromProbs(raw [][]float64, width int, opts ...PosteriorOption) (*Posterior, error) {
	cfg := applyOpts(opts)
	if err := checkShape(raw, width); err != nil {
		return nil, err
	}

	T := len(raw)
	logp := mathutil.NewMat(T, width)
	for t, row := range raw {
		for v, p := range row {
			if p < 0 || p > 1+1e-6 || math.IsNaN(p) {
				return nil, fmt.Errorf("%w: %g at frame %d symbol %d", ErrInvalidProbability, p, t, v)
			}
			if p < cfg.epsilon {
				p = cfg.epsilon
			}
			logp[t][v] = math.Log(p)
		}
	}
	return &Posterior{logp: logp, width: width}, nil
}

func applyOpts(opts []PosteriorOption) posteriorConfig {
	cfg := posteriorConfig{epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func checkShape(raw [][]float64, width int) error {
	if width <= 0 {
		return fmt.Errorf("%w: vocabulary size %d", ErrShapeMismatch, width)
	}
	for t, row := range raw {
		if len(row) != width {
			return fmt.Errorf("%w: frame %d has width %d, want %d", ErrShapeMismatch, t, len(row), width)
		}
	}
	return nil
}

// Frames returns the number of frames T.
func (p *Posterior) Frames() int {
	return len(p.logp)
}

// Width returns the vocabulary size V.
func (p *Posterior) Width() int {
	return p.width
}

// LogProb returns the log-probability of symbol v at frame t.
func (p *Posterior) LogProb(t, v int) float64 {
	return p.logp[t][v]
}

// Row returns the log-probability row for frame t. The returned slice is
// owned by the Posterior and must not be modified.
func (p *Posterior) Row(t int) []float64 {
	return p.logp[t]
}

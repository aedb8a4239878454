// Package aligner glues an acoustic model, a symbol vocabulary, and the
// alignment decoder into a ready-to-use forced aligner for bootstrapping
// speech-synthesis training data.
package aligner

import (
	"fmt"
	"io"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/align"
	"github.com/ieee0824/aligner-go/symbol"
)

// Aligner is the top-level forced aligner.
type Aligner struct {
	Model         acoustic.Model
	Vocab         *symbol.Vocabulary
	Epsilon       float64          // probability floor for posteriors
	FrameDuration float64          // seconds per frame, 0 = frames only
	Blanks        align.BlankPolicy
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithEpsilon sets the probability floor applied during normalization.
func WithEpsilon(eps float64) Option {
	return func(a *Aligner) {
		a.Epsilon = eps
	}
}

// WithFrameDuration sets the seconds-per-frame conversion for segment times.
func WithFrameDuration(d float64) Option {
	return func(a *Aligner) {
		a.FrameDuration = d
	}
}

// WithBlankPolicy sets which segment absorbs inter-symbol blank frames.
func WithBlankPolicy(p align.BlankPolicy) Option {
	return func(a *Aligner) {
		a.Blanks = p
	}
}

// New creates an Aligner from a loaded model and vocabulary.
func New(model acoustic.Model, vocab *symbol.Vocabulary, opts ...Option) *Aligner {
	a := &Aligner{
		Model:   model,
		Vocab:   vocab,
		Epsilon: acoustic.DefaultEpsilon,
		Blanks:  align.AttachPrevious,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig loads the vocabulary and ONNX model named by cfg.
func NewFromConfig(cfg *Config) (*Aligner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vocab, err := symbol.LoadFile(cfg.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	model, err := acoustic.NewONNXModel(acoustic.ONNXConfig{
		ModelPath:   cfg.Model.Path,
		LibraryPath: cfg.Model.Library,
		InputName:   cfg.Model.Input,
		OutputName:  cfg.Model.Output,
		Threads:     cfg.Model.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("load acoustic model: %w", err)
	}

	policy, err := cfg.Decoder.Policy()
	if err != nil {
		return nil, err
	}

	return New(model, vocab,
		WithEpsilon(cfg.Decoder.Epsilon),
		WithFrameDuration(cfg.Audio.FrameDuration()),
		WithBlankPolicy(policy),
	), nil
}

// Align runs the acoustic model on a feature sequence and aligns it to
// the transcript symbols.
func (a *Aligner) Align(features [][]float64, symbols []string) (*align.Result, error) {
	targets, err := a.Vocab.Indices(symbols)
	if err != nil {
		return nil, fmt.Errorf("map transcript: %w", err)
	}

	raw, err := a.Model.Scores(features)
	if err != nil {
		return nil, fmt.Errorf("acoustic model: %w", err)
	}

	post, err := acoustic.PosteriorFromLogits(raw, a.Vocab.Size(), acoustic.WithEpsilon(a.Epsilon))
	if err != nil {
		return nil, err
	}
	return a.AlignPosterior(post, targets)
}

// AlignPosterior aligns an already-normalized posterior to a target
// index sequence.
func (a *Aligner) AlignPosterior(post *acoustic.Posterior, targets []int) (*align.Result, error) {
	return align.Align(post, targets, a.Vocab, a.extractOptions())
}

// ExtractOptions returns the boundary-extraction settings in effect.
func (a *Aligner) ExtractOptions() align.ExtractOptions {
	return a.extractOptions()
}

func (a *Aligner) extractOptions() align.ExtractOptions {
	return align.ExtractOptions{
		FrameDuration: a.FrameDuration,
		Blanks:        a.Blanks,
	}
}

// Close releases the underlying model if it holds native resources.
func (a *Aligner) Close() error {
	if c, ok := a.Model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

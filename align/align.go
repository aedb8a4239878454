// Package align implements forced alignment of a frame-level posterior
// matrix against a known symbol sequence. The decoder finds the maximum
// log-probability monotonic expansion of the transcript over the frames
// (Viterbi over the blank-interleaved lattice) and the extractor turns
// the resulting frame path into per-symbol time segments.
package align

import (
	"fmt"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/symbol"
)

// Align decodes the best path for targets over post and extracts its
// segments in one step. targets are vocabulary indices excluding blank.
func Align(post *acoustic.Posterior, targets []int, vocab *symbol.Vocabulary, opts ExtractOptions) (*Result, error) {
	if post.Width() != vocab.Size() {
		return nil, fmt.Errorf("%w: posterior width %d, vocabulary size %d",
			acoustic.ErrShapeMismatch, post.Width(), vocab.Size())
	}

	path, score, err := Viterbi(post, targets, vocab.BlankIndex())
	if err != nil {
		return nil, err
	}

	result, err := ExtractSegments(path, targets, vocab, opts)
	if err != nil {
		return nil, err
	}
	result.LogScore = score
	return result, nil
}

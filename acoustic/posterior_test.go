package acoustic

import (
	"errors"
	"math"
	"testing"

	"github.com/ieee0824/aligner-go/internal/mathutil"
)

func TestPosteriorFromLogitsRowsNormalized(t *testing.T) {
	raw := [][]float64{
		{2.0, 1.0, 0.5},
		{-1.0, 3.0, 0.0},
	}
	post, err := PosteriorFromLogits(raw, 3)
	if err != nil {
		t.Fatalf("PosteriorFromLogits: %v", err)
	}
	if post.Frames() != 2 || post.Width() != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", post.Frames(), post.Width())
	}
	for tt := 0; tt < post.Frames(); tt++ {
		sum := 0.0
		for v := 0; v < post.Width(); v++ {
			sum += math.Exp(post.LogProb(tt, v))
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("frame %d: probabilities sum to %f, want 1", tt, sum)
		}
	}
}

func TestPosteriorFromLogitsLargeValuesStable(t *testing.T) {
	// Values that would overflow exp without max-shifting.
	raw := [][]float64{{1000.0, 999.0, 0.0}}
	post, err := PosteriorFromLogits(raw, 3)
	if err != nil {
		t.Fatalf("PosteriorFromLogits: %v", err)
	}
	for v := 0; v < 3; v++ {
		lp := post.LogProb(0, v)
		if math.IsNaN(lp) || math.IsInf(lp, 0) {
			t.Errorf("LogProb(0,%d) = %f (not finite)", v, lp)
		}
	}
	if post.LogProb(0, 0) <= post.LogProb(0, 1) {
		t.Errorf("expected symbol 0 to dominate: %f vs %f", post.LogProb(0, 0), post.LogProb(0, 1))
	}
}

func TestPosteriorEpsilonFloor(t *testing.T) {
	// Symbol 2 gets essentially zero mass; the floor must keep its
	// log-probability finite and no lower than log(epsilon).
	raw := [][]float64{{100.0, 100.0, -1000.0}}
	post, err := PosteriorFromLogits(raw, 3)
	if err != nil {
		t.Fatalf("PosteriorFromLogits: %v", err)
	}
	lp := post.LogProb(0, 2)
	if lp < math.Log(DefaultEpsilon)-1e-9 {
		t.Errorf("LogProb(0,2) = %f, below floor %f", lp, math.Log(DefaultEpsilon))
	}
	if lp == mathutil.LogZero {
		t.Error("LogProb(0,2) is LogZero; floor not applied")
	}
}

func TestPosteriorFromProbsClampsZero(t *testing.T) {
	raw := [][]float64{{1.0, 0.0}}
	post, err := PosteriorFromProbs(raw, 2, WithEpsilon(1e-8))
	if err != nil {
		t.Fatalf("PosteriorFromProbs: %v", err)
	}
	want := math.Log(1e-8)
	if got := post.LogProb(0, 1); math.Abs(got-want) > 1e-12 {
		t.Errorf("LogProb(0,1) = %f, want %f", got, want)
	}
}

func TestPosteriorShapeMismatch(t *testing.T) {
	raw := [][]float64{{1.0, 2.0}, {1.0}}
	if _, err := PosteriorFromLogits(raw, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("ragged rows: err = %v, want ErrShapeMismatch", err)
	}
	if _, err := PosteriorFromLogits([][]float64{{1.0}}, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("wrong width: err = %v, want ErrShapeMismatch", err)
	}
}

func TestPosteriorFromProbsRejectsNegative(t *testing.T) {
	raw := [][]float64{{1.2, -0.2}}
	if _, err := PosteriorFromProbs(raw, 2); !errors.Is(err, ErrInvalidProbability) {
		t.Errorf("err = %v, want ErrInvalidProbability", err)
	}
}

func TestModelFunc(t *testing.T) {
	m := ModelFunc(func(features [][]float64) ([][]float64, error) {
		out := make([][]float64, len(features))
		for i := range out {
			out[i] = []float64{0.0, 1.0}
		}
		return out, nil
	})
	scores, err := m.Scores(make([][]float64, 3))
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if len(scores) != 3 {
		t.Errorf("len = %d, want 3", len(scores))
	}
}

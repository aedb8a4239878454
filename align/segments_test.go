package align

import (
	"errors"
	"math"
	"testing"
)

// handPath is a path with leading, separating, and trailing blanks:
// frames:   0  1  2  3  4  5  6
// labels:   B  a  a  B  B  b  B
func handPath() (Path, []int) {
	return Path{Blank, 0, 0, Blank, Blank, 1, Blank}, []int{1, 2}
}

func TestExtractSegments_AttachPrevious(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()

	result, err := ExtractSegments(path, targets, vocab, ExtractOptions{Blanks: AttachPrevious})
	if err != nil {
		t.Fatalf("ExtractSegments: %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(result.Segments))
	}

	a, b := result.Segments[0], result.Segments[1]
	// Leading blank folds into a; separating blanks extend a; trailing
	// blank extends b.
	if a.Symbol != "a" || a.StartFrame != 0 || a.EndFrame != 5 {
		t.Errorf("segment 0 = %+v, want a [0,5)", a)
	}
	if b.Symbol != "b" || b.StartFrame != 5 || b.EndFrame != 7 {
		t.Errorf("segment 1 = %+v, want b [5,7)", b)
	}
}

func TestExtractSegments_AttachNext(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()

	result, err := ExtractSegments(path, targets, vocab, ExtractOptions{Blanks: AttachNext})
	if err != nil {
		t.Fatalf("ExtractSegments: %v", err)
	}

	a, b := result.Segments[0], result.Segments[1]
	// Leading blank folds into a; separating blanks pull b's start back;
	// trailing blank, having no following symbol, extends b.
	if a.StartFrame != 0 || a.EndFrame != 3 {
		t.Errorf("segment 0 = %+v, want a [0,3)", a)
	}
	if b.StartFrame != 3 || b.EndFrame != 7 {
		t.Errorf("segment 1 = %+v, want b [3,7)", b)
	}
}

func TestExtractSegments_DiscardBlanks(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()

	result, err := ExtractSegments(path, targets, vocab, ExtractOptions{Blanks: DiscardBlanks})
	if err != nil {
		t.Fatalf("ExtractSegments: %v", err)
	}

	a, b := result.Segments[0], result.Segments[1]
	if a.StartFrame != 1 || a.EndFrame != 3 {
		t.Errorf("segment 0 = %+v, want a [1,3)", a)
	}
	if b.StartFrame != 5 || b.EndFrame != 6 {
		t.Errorf("segment 1 = %+v, want b [5,6)", b)
	}
}

func TestExtractSegments_Coverage(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()
	T := len(path)

	for _, policy := range []BlankPolicy{AttachPrevious, AttachNext} {
		result, err := ExtractSegments(path, targets, vocab, ExtractOptions{Blanks: policy})
		if err != nil {
			t.Fatalf("%v: %v", policy, err)
		}
		segs := result.Segments
		if segs[0].StartFrame != 0 {
			t.Errorf("%v: first segment starts at %d", policy, segs[0].StartFrame)
		}
		for i := 1; i < len(segs); i++ {
			if segs[i].StartFrame != segs[i-1].EndFrame {
				t.Errorf("%v: gap between segments %d and %d", policy, i-1, i)
			}
		}
		if segs[len(segs)-1].EndFrame != T {
			t.Errorf("%v: last segment ends at %d, want %d", policy, segs[len(segs)-1].EndFrame, T)
		}

		sum := 0
		for _, d := range result.Durations() {
			sum += d
		}
		if sum != T {
			t.Errorf("%v: durations sum to %d, want %d", policy, sum, T)
		}
	}
}

func TestExtractSegments_Times(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()

	// 256-sample hop at 22050 Hz.
	frameDur := 256.0 / 22050.0
	result, err := ExtractSegments(path, targets, vocab, ExtractOptions{FrameDuration: frameDur})
	if err != nil {
		t.Fatalf("ExtractSegments: %v", err)
	}
	a := result.Segments[0]
	if math.Abs(a.StartTime-0.0) > 1e-12 {
		t.Errorf("StartTime = %f, want 0", a.StartTime)
	}
	if math.Abs(a.EndTime-5*frameDur) > 1e-12 {
		t.Errorf("EndTime = %f, want %f", a.EndTime, 5*frameDur)
	}
}

func TestExtractSegments_MalformedPath(t *testing.T) {
	vocab := buildVocab(t)

	cases := []struct {
		name    string
		path    Path
		targets []int
	}{
		{"split position", Path{0, Blank, 0}, []int{1}},
		{"missing position", Path{0, 0, Blank}, []int{1, 2}},
		{"wrong order", Path{1, Blank, 0}, []int{1, 2}},
		{"empty path", Path{}, []int{1}},
	}
	for _, tc := range cases {
		if _, err := ExtractSegments(tc.path, tc.targets, vocab, ExtractOptions{}); !errors.Is(err, ErrMalformedPath) {
			t.Errorf("%s: err = %v, want ErrMalformedPath", tc.name, err)
		}
	}
}

func TestExtractSegments_NegativeFrameDuration(t *testing.T) {
	vocab := buildVocab(t)
	path, targets := handPath()
	if _, err := ExtractSegments(path, targets, vocab, ExtractOptions{FrameDuration: -1}); err == nil {
		t.Error("expected error for negative frame duration")
	}
}

func TestBlankPolicyString(t *testing.T) {
	if AttachPrevious.String() != "previous" || AttachNext.String() != "next" || DiscardBlanks.String() != "discard" {
		t.Error("unexpected BlankPolicy strings")
	}
}

func TestPathCollapse(t *testing.T) {
	p := Path{Blank, 0, 0, Blank, 1, 1, Blank, 2}
	got := p.Collapse()
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Collapse = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Collapse = %v, want %v", got, want)
		}
	}
}

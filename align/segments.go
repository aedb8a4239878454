package align

import (
	"fmt"

	"github.com/ieee0824/aligner-go/symbol"
)

// BlankPolicy controls which segment absorbs the blank frames between
// symbols.
type BlankPolicy int

const (
	// AttachPrevious merges blank stretches into the preceding symbol's
	// segment, the conventional forced-alignment duration semantics.
	// Leading blanks, having no preceding symbol, fold into the first
	// segment. This is the default.
	AttachPrevious BlankPolicy = iota
	// AttachNext merges blank stretches into the following symbol's
	// segment; trailing blanks fold into the last segment.
	AttachNext
	// DiscardBlanks drops blank stretches, leaving gaps between segments.
	DiscardBlanks
)

func (p BlankPolicy) String() string {
	switch p {
	case AttachPrevious:
		return "previous"
	case AttachNext:
		return "next"
	case DiscardBlanks:
		return "discard"
	}
	return fmt.Sprintf("BlankPolicy(%d)", int(p))
}

// ExtractOptions configures boundary extraction.
type ExtractOptions struct {
	FrameDuration float64 // seconds per frame; 0 leaves segment times zero
	Blanks        BlankPolicy
}

type run struct {
	pos   int // target position or Blank
	start int
	end   int // exclusive
}

// ExtractSegments converts an expanded path into per-symbol segments.
// The path must collapse to the target sequence exactly; under the attach
// policies the returned segments are contiguous and cover [0, T).
func ExtractSegments(path Path, targets []int, vocab *symbol.Vocabulary, opts ExtractOptions) (*Result, error) {
	T := len(path)
	L := len(targets)
	if L == 0 {
		return nil, ErrEmptyTarget
	}
	if T == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	if opts.FrameDuration < 0 {
		return nil, fmt.Errorf("frame duration must not be negative, got %g", opts.FrameDuration)
	}
	if !path.valid(L) {
		return nil, fmt.Errorf("%w: path does not collapse to the target sequence", ErrMalformedPath)
	}

	runs := splitRuns(path)

	var segs []Segment
	switch opts.Blanks {
	case AttachPrevious:
		segs = attachPrevious(runs)
	case AttachNext:
		segs = attachNext(runs, T)
	case DiscardBlanks:
		segs = discardBlanks(runs)
	default:
		return nil, fmt.Errorf("unrecognized blank policy %v", opts.Blanks)
	}

	for i := range segs {
		p := segs[i].Position
		sym, err := vocab.SymbolAt(targets[p])
		if err != nil {
			return nil, fmt.Errorf("target position %d: %w", p, err)
		}
		segs[i].Symbol = sym
		segs[i].Index = targets[p]
		if opts.FrameDuration > 0 {
			segs[i].StartTime = float64(segs[i].StartFrame) * opts.FrameDuration
			segs[i].EndTime = float64(segs[i].EndFrame) * opts.FrameDuration
		}
	}

	if opts.Blanks != DiscardBlanks {
		if err := checkCoverage(segs, T); err != nil {
			return nil, err
		}
	}

	return &Result{Segments: segs, Frames: T}, nil
}

// splitRuns groups consecutive equal path labels into runs.
func splitRuns(path Path) []run {
	var runs []run
	cur := run{pos: path[0], start: 0}
	for t := 1; t < len(path); t++ {
		if path[t] != cur.pos {
			cur.end = t
			runs = append(runs, cur)
			cur = run{pos: path[t], start: t}
		}
	}
	cur.end = len(path)
	runs = append(runs, cur)
	return runs
}

func attachPrevious(runs []run) []Segment {
	var segs []Segment
	pendingStart := -1 // leading blanks fold into the first segment
	for _, r := range runs {
		if r.pos == Blank {
			if len(segs) > 0 {
				segs[len(segs)-1].EndFrame = r.end
			} else if pendingStart < 0 {
				pendingStart = r.start
			}
			continue
		}
		start := r.start
		if pendingStart >= 0 {
			start = pendingStart
			pendingStart = -1
		}
		segs = append(segs, Segment{Position: r.pos, StartFrame: start, EndFrame: r.end})
	}
	return segs
}

func attachNext(runs []run, T int) []Segment {
	var segs []Segment
	pendingStart := -1
	for _, r := range runs {
		if r.pos == Blank {
			if pendingStart < 0 {
				pendingStart = r.start
			}
			continue
		}
		start := r.start
		if pendingStart >= 0 {
			start = pendingStart
			pendingStart = -1
		}
		segs = append(segs, Segment{Position: r.pos, StartFrame: start, EndFrame: r.end})
	}
	// Trailing blanks have no following symbol; fold into the last segment.
	if pendingStart >= 0 && len(segs) > 0 {
		segs[len(segs)-1].EndFrame = T
	}
	return segs
}

func discardBlanks(runs []run) []Segment {
	var segs []Segment
	for _, r := range runs {
		if r.pos == Blank {
			continue
		}
		segs = append(segs, Segment{Position: r.pos, StartFrame: r.start, EndFrame: r.end})
	}
	return segs
}

// checkCoverage verifies the segments tile [0, T) with no gaps or overlaps.
func checkCoverage(segs []Segment, T int) error {
	if len(segs) == 0 {
		return fmt.Errorf("%w: no segments", ErrMalformedPath)
	}
	if segs[0].StartFrame != 0 {
		return fmt.Errorf("%w: first segment starts at %d", ErrMalformedPath, segs[0].StartFrame)
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].StartFrame != segs[i-1].EndFrame {
			return fmt.Errorf("%w: gap between segments %d and %d", ErrMalformedPath, i-1, i)
		}
	}
	if segs[len(segs)-1].EndFrame != T {
		return fmt.Errorf("%w: last segment ends at %d, want %d", ErrMalformedPath, segs[len(segs)-1].EndFrame, T)
	}
	return nil
}

package align

// Blank marks a frame that emits the blank class rather than a target
// position.
const Blank = -1

// Path is an expanded frame-level alignment: one entry per frame, each
// either Blank or a target-sequence position in [0, L).
type Path []int

// Collapse removes blanks and merges consecutive repeats of the same
// target position, recovering the aligned positions in order. Repeats
// separated by a blank are kept distinct.
func (p Path) Collapse() []int {
	out := make([]int, 0, len(p))
	prev := Blank
	for _, l := range p {
		if l != Blank && l != prev {
			out = append(out, l)
		}
		prev = l
	}
	return out
}

// valid reports whether the path collapses to exactly positions 0..L-1.
func (p Path) valid(L int) bool {
	c := p.Collapse()
	if len(c) != L {
		return false
	}
	for i, pos := range c {
		if pos != i {
			return false
		}
	}
	return true
}

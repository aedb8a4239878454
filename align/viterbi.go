package align

import (
	"fmt"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/internal/mathutil"
)

// Viterbi computes the maximum log-probability admissible expansion of
// targets over the posterior's frames and returns it with its score.
//
// The search runs over the expanded lattice of S = 2L+1 states: even
// states emit blank, odd state s emits targets[(s-1)/2]. State s is
// reachable from s (stay), s-1 (advance), and s-2 (skip the separating
// blank, allowed only between differing symbols). Collapsing any path
// through this lattice reproduces the target sequence exactly.
//
// targets are vocabulary indices excluding blank; blank is the reserved
// index of the blank class in the posterior.
func Viterbi(post *acoustic.Posterior, targets []int, blank int) (Path, float64, error) {
	L := len(targets)
	if L == 0 {
		return nil, 0, ErrEmptyTarget
	}
	T := post.Frames()
	V := post.Width()
	if blank < 0 || blank >= V {
		return nil, 0, fmt.Errorf("%w: blank index %d (posterior width %d)", ErrInvalidTarget, blank, V)
	}
	for i, idx := range targets {
		if idx < 0 || idx >= V {
			return nil, 0, fmt.Errorf("%w: %d at position %d (posterior width %d)", ErrInvalidTarget, idx, i, V)
		}
		if idx == blank {
			return nil, 0, fmt.Errorf("%w: blank class at position %d", ErrInvalidTarget, i)
		}
	}

	// Adjacent identical symbols need a blank frame between them, so the
	// minimum path length exceeds L by the number of such pairs.
	minFrames := L
	for i := 1; i < L; i++ {
		if targets[i] == targets[i-1] {
			minFrames++
		}
	}
	if T < minFrames {
		return nil, 0, fmt.Errorf("%w: %d frames for %d symbols (minimum %d)", ErrInfeasible, T, L, minFrames)
	}

	S := 2*L + 1
	label := make([]int, S) // vocabulary index emitted by each lattice state
	for s := range label {
		if s%2 == 0 {
			label[s] = blank
		} else {
			label[s] = targets[(s-1)/2]
		}
	}

	// Viterbi with double-buffered score vectors and a full backpointer
	// table for path reconstruction.
	prev := mathutil.NewVecFill(S, mathutil.LogZero)
	curr := mathutil.NewVecFill(S, mathutil.LogZero)
	bp := make([][]int32, T)
	for t := range bp {
		bp[t] = make([]int32, S)
	}

	// Frame 0 may only emit the leading blank or the first symbol.
	prev[0] = post.LogProb(0, blank)
	prev[1] = post.LogProb(0, label[1])

	for t := 1; t < T; t++ {
		mathutil.FillVec(curr, mathutil.LogZero)
		for s := 0; s < S; s++ {
			// Candidates are ordered by target progress; strict > keeps
			// the earlier (more advancing) transition on exact score ties,
			// making the result deterministic.
			bestScore := mathutil.LogZero
			bestPrev := int32(s)

			if s%2 == 1 && s >= 3 && label[s] != label[s-2] {
				if sc := prev[s-2]; sc > bestScore {
					bestScore = sc
					bestPrev = int32(s - 2)
				}
			}
			if s >= 1 {
				if sc := prev[s-1]; sc > bestScore {
					bestScore = sc
					bestPrev = int32(s - 1)
				}
			}
			if sc := prev[s]; sc > bestScore {
				bestScore = sc
				bestPrev = int32(s)
			}

			if bestScore > mathutil.LogZero+1 {
				curr[s] = bestScore + post.LogProb(t, label[s])
			}
			bp[t][s] = bestPrev
		}
		prev, curr = curr, prev
	}

	// Termination: the path must end on the last symbol or the trailing
	// blank. The symbol state is checked first so ties resolve toward it.
	bestEnd := -1
	bestScore := mathutil.LogZero
	for _, s := range []int{S - 2, S - 1} {
		if prev[s] > bestScore {
			bestScore = prev[s]
			bestEnd = s
		}
	}
	if bestEnd < 0 || bestScore <= mathutil.LogZero+1 {
		return nil, 0, fmt.Errorf("%w: no finite-score terminal state", ErrInfeasible)
	}

	// Backtrace.
	states := make([]int, T)
	states[T-1] = bestEnd
	for t := T - 1; t > 0; t-- {
		states[t-1] = int(bp[t][states[t]])
	}

	path := make(Path, T)
	for t, s := range states {
		if s%2 == 0 {
			path[t] = Blank
		} else {
			path[t] = (s - 1) / 2
		}
	}
	return path, bestScore, nil
}

package align

import "errors"

var (
	// ErrEmptyTarget is returned when the target sequence has no symbols.
	ErrEmptyTarget = errors.New("align: empty target sequence")

	// ErrInfeasible is returned when no admissible path exists: too few
	// frames for the target sequence, or no terminal lattice state has a
	// finite score.
	ErrInfeasible = errors.New("align: infeasible alignment")

	// ErrInvalidTarget is returned when a target index is outside the
	// posterior width or refers to the blank class.
	ErrInvalidTarget = errors.New("align: invalid target index")

	// ErrMalformedPath is returned when a path does not collapse back to
	// the target sequence. A decoder-produced path can never trigger this;
	// it guards against corrupted or hand-built paths.
	ErrMalformedPath = errors.New("align: malformed path")
)

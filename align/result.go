package align

// Segment is one aligned symbol span. Frame bounds are half-open
// [StartFrame, EndFrame); times are filled in when the frame duration is
// known.
type Segment struct {
	Symbol     string  // symbol string from the vocabulary
	Position   int     // index into the target sequence
	Index      int     // vocabulary index
	StartFrame int     // inclusive
	EndFrame   int     // exclusive
	StartTime  float64 // seconds
	EndTime    float64 // seconds
}

// Result holds the alignment output: one segment per target symbol, in
// target order, plus the path's total log-probability.
type Result struct {
	Segments []Segment
	LogScore float64
	Frames   int // path length T
}

// Durations returns the frame count of each segment in target order.
// Under the attach policies these sum to Frames; under DiscardBlanks the
// blank frames are missing from the total.
func (r *Result) Durations() []int {
	out := make([]int, len(r.Segments))
	for i, seg := range r.Segments {
		out[i] = seg.EndFrame - seg.StartFrame
	}
	return out
}

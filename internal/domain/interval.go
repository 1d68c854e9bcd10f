package domain

import "fmt"

// Interval is a half-open span [Start, End) of minutes. A valid interval
// always has End strictly after Start.
type Interval struct {
	Start Minute
	End   Minute
}

// NewInterval returns ErrValidation for zero-width or inverted spans.
func NewInterval(start, end Minute) (Interval, error) {
	if end <= start {
		return Interval{}, fmt.Errorf("%w: end time %s must be after start time %s", ErrValidation, end, start)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether the two spans share at least one minute.
// Spans that only touch at a boundary do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

func (i Interval) String() string {
	return "[" + i.Start.String() + ", " + i.End.String() + ")"
}

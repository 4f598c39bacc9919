package dynamo

import (
	"fmt"
	"sort"
)

// Input is a time-dependent input schedule.
type Input interface {
	At(t float64) Control
}

// ConstantInput returns the same control at every time.
type ConstantInput Control

func (c ConstantInput) At(float64) Control {
	return Control(c)
}

// Segment holds Value for times strictly below Until.
type Segment struct {
	Until float64
	Value Control
}

// PiecewiseConstant is a step-function input. Times at or past the last
// segment's Until keep the Final value.
type PiecewiseConstant struct {
	Segments []Segment
	Final    Control
}

// NewPiecewiseConstant sorts segments by Until and checks that every value
// has the same width as final.
func NewPiecewiseConstant(final Control, segments ...Segment) (*PiecewiseConstant, error) {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Until < sorted[j].Until })

	for i, s := range sorted {
		if len(s.Value) != len(final) {
			return nil, fmt.Errorf("segment %d has %d inputs, want %d: %w", i, len(s.Value), len(final), ErrDimensionMismatch)
		}
	}
	return &PiecewiseConstant{Segments: sorted, Final: final}, nil
}

func (p *PiecewiseConstant) At(t float64) Control {
	for _, s := range p.Segments {
		if t < s.Until {
			return s.Value
		}
	}
	return p.Final
}

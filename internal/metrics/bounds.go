package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
)

// Range tracks the extremes of one state component. Value reports the
// spread max − min; Min and Max expose the ends.
type Range struct {
	name      string
	component int
	min, max  float64
	samples   int
}

func NewRange(component int) *Range {
	r := &Range{name: fmt.Sprintf("range_x%d", component), component: component}
	r.Reset()
	return r
}

func (r *Range) Name() string { return r.name }

func (r *Range) Observe(x dynamo.State, _ dynamo.Control, _ float64) {
	if r.component >= len(x) {
		return
	}
	v := x[r.component]
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
	r.samples++
}

func (r *Range) Min() float64 { return r.min }
func (r *Range) Max() float64 { return r.max }

func (r *Range) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.max - r.min
}

func (r *Range) Reset() {
	r.min = math.Inf(1)
	r.max = math.Inf(-1)
	r.samples = 0
}

// share is the fraction of samples that pass a state predicate, 1 before
// any sample.
type share struct {
	name    string
	pass    func(dynamo.State) bool
	failed  int
	samples int
}

func (f *share) Name() string { return f.name }

func (f *share) Observe(x dynamo.State, _ dynamo.Control, _ float64) {
	f.samples++
	if !f.pass(x) {
		f.failed++
	}
}

func (f *share) Value() float64 {
	if f.samples == 0 {
		return 1
	}
	return 1 - float64(f.failed)/float64(f.samples)
}

func (f *share) Reset() {
	f.failed = 0
	f.samples = 0
}

// Stability is the share of samples whose components all lie within
// ±Threshold. A NaN component counts as outside.
type Stability struct {
	share
	Threshold float64
}

func NewStability(threshold float64) *Stability {
	s := &Stability{Threshold: threshold}
	s.share = share{name: "stability", pass: s.bounded}
	return s
}

func (s *Stability) bounded(x dynamo.State) bool {
	for _, v := range x {
		if !(math.Abs(v) <= s.Threshold) {
			return false
		}
	}
	return true
}

// Positivity is the share of samples with no negative component. Tank
// levels and concentrations must stay at 1.
type Positivity struct {
	share
}

func NewPositivity() *Positivity {
	return &Positivity{share{name: "positivity", pass: nonNegative}}
}

func nonNegative(x dynamo.State) bool {
	for _, v := range x {
		if v < 0 {
			return false
		}
	}
	return true
}

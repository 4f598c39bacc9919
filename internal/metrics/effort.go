package metrics

import (
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
)

// InputEffort is the mean L1 norm of the applied input.
type InputEffort struct {
	sum     float64
	peak    float64
	samples int
}

func NewInputEffort() *InputEffort {
	return &InputEffort{}
}

func (c *InputEffort) Name() string {
	return "input_effort"
}

func (c *InputEffort) Observe(_ dynamo.State, u dynamo.Control, _ float64) {
	l1 := 0.0
	for _, val := range u {
		l1 += math.Abs(val)
	}
	c.sum += l1
	c.peak = math.Max(c.peak, l1)
	c.samples++
}

func (c *InputEffort) Peak() float64 { return c.peak }

func (c *InputEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *InputEffort) Reset() {
	c.sum = 0
	c.peak = 0
	c.samples = 0
}

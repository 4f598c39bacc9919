package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/dynamo"
)

// Variant is one run of a sweep.
type Variant struct {
	Name   string
	Config Config
}

// Sweep runs independent trajectories of one system, one goroutine per
// variant. Every run gets its own Simulator; metrics of the base are not
// shared.
type Sweep struct {
	base *Simulator
}

func NewSweep(s *Simulator) *Sweep {
	return &Sweep{base: s}
}

// Run returns results in variant order. The first failing variant's error is
// returned along with whatever results completed.
func (e *Sweep) Run(ctx context.Context, x0 dynamo.State, variants []Variant) ([]*Result, error) {
	results := make([]*Result, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()

			sim := New(e.base.sys, e.base.input)
			sim.SetBackend(e.base.backend)
			sim.SetLogger(e.base.logger.With(zap.String("variant", v.Name)))

			results[idx], errs[idx] = sim.Run(ctx, x0, v.Config)
		}(i, v)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("variant %s: %w", variants[i].Name, err)
		}
	}

	return results, nil
}

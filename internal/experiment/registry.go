package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/metrics"
	"github.com/san-kum/thetastep/internal/models"
	"github.com/san-kum/thetastep/internal/sim"
)

// RootProblem is a square system F(x) = 0 with an analytic Jacobian.
type RootProblem interface {
	dynamo.VectorField
	dynamo.Jacobian
	Size() int
	DefaultGuess() dynamo.State
}

type Registry struct {
	models   map[string]func() dynamo.System
	inputs   map[string]func() dynamo.Input
	schemes  map[string]float64
	problems map[string]func() RootProblem
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]func() dynamo.System),
		inputs:   make(map[string]func() dynamo.Input),
		schemes:  make(map[string]float64),
		problems: make(map[string]func() RootProblem),
	}

	r.models["two_tank"] = func() dynamo.System { return models.NewTwoTank() }
	r.models["vanderpol"] = func() dynamo.System { return models.NewVanDerPol() }
	r.models["pendulum"] = func() dynamo.System { return models.NewPendulum() }
	r.models["decay"] = func() dynamo.System { return models.NewDecay() }

	r.inputs["two_tank"] = func() dynamo.Input { return models.TwoTankSchedule() }

	r.schemes["explicit"] = 0
	r.schemes["tustin"] = 0.5
	r.schemes["implicit"] = 1

	r.problems["coupled_exp"] = func() RootProblem { return models.CoupledExp{} }

	return r
}

func (r *Registry) GetModel(name string) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

// GetInput returns the reference input schedule of a model, or nil when the
// model is autonomous or has none.
func (r *Registry) GetInput(name string) dynamo.Input {
	fn, ok := r.inputs[name]
	if !ok {
		return nil
	}
	return fn()
}

// GetScheme maps a scheme name to its blend coefficient α.
func (r *Registry) GetScheme(name string) (float64, error) {
	alpha, ok := r.schemes[name]
	if !ok {
		return 0, fmt.Errorf("unknown scheme: %s", name)
	}
	return alpha, nil
}

func (r *Registry) GetProblem(name string) (RootProblem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListSchemes() []string {
	return sortedKeys(r.schemes)
}

func (r *Registry) ListProblems() []string {
	return sortedKeys(r.problems)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(model string, sys dynamo.System) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewStability(10.0),
		metrics.NewRange(0),
	}
	if sys.InputDim() > 0 {
		ms = append(ms, metrics.NewInputEffort())
	}
	if model == "two_tank" {
		ms = append(ms, metrics.NewPositivity())
	}
	if e, ok := sys.(metrics.Energetic); ok {
		ms = append(ms, metrics.NewEnergyDrift(e))
	}
	return ms
}

package metrics

import (
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
)

// Energetic is implemented by systems with a conserved quantity in the
// undamped limit.
type Energetic interface {
	Energy(x dynamo.State) float64
}

// EnergyDrift is the largest relative deviation from the first observed
// energy. Explicit Euler gains energy on oscillators, backward Euler loses it
// and the trapezoidal rule keeps it for linear ones.
type EnergyDrift struct {
	initialEnergy float64
	maxDrift      float64
	samples       int
	sys           Energetic
}

func NewEnergyDrift(sys Energetic) *EnergyDrift {
	return &EnergyDrift{sys: sys}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, _ dynamo.Control, _ float64) {
	energy := e.sys.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

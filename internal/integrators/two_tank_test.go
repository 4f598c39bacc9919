package integrators_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/thetastep/internal/integrators"
	"github.com/san-kum/thetastep/internal/models"
)

var _ = Describe("Two-tank reference scenario", Label("slow"), func() {
	It("agrees between the explicit and the Tustin step", func() {
		if testing.Short() {
			Skip("long trajectory")
		}

		tank := models.NewTwoTank()
		input := models.TwoTankSchedule()
		ts := 1e-2

		explicit := integrators.NewEuler(configFor(tank, ts, 0))
		tustin := integrators.NewEuler(configFor(tank, ts, 0.5))

		xe := tank.DefaultState()
		xi := tank.DefaultState()
		ne := make([]float64, 2)
		ni := make([]float64, 2)

		maxDiff, maxIter, steps := 0.0, 0, 0
		for k := 0; ; k++ {
			t := float64(k) * ts
			if t >= 500 {
				break
			}
			u := input.At(t)

			_, err := explicit.Step(ne, t, xe, u, nil)
			Expect(err).NotTo(HaveOccurred())
			rep, err := tustin.Step(ni, t, xi, u, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Status).To(Equal(integrators.Success))

			copy(xe, ne)
			copy(xi, ni)
			steps++
			maxIter = max(maxIter, rep.Newton.Iterations)

			for i := range xe {
				Expect(xe[i]).To(And(BeNumerically(">=", 0), BeNumerically("<", 2)))
				Expect(xi[i]).To(And(BeNumerically(">=", 0), BeNumerically("<", 2)))
				maxDiff = math.Max(maxDiff, math.Abs(xe[i]-xi[i]))
			}
		}

		Expect(steps).To(Equal(50000))
		Expect(maxDiff).To(BeNumerically("<", 1e-3))
		Expect(maxIter).To(BeNumerically("<", integrators.DefaultMaxIter))
	})
})

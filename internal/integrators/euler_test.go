package integrators_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/integrators"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/models"
	"github.com/san-kum/thetastep/internal/newton"
)

func configFor(sys dynamo.System, ts, alpha float64) integrators.Config {
	return integrators.Config{
		Ts:       ts,
		Alpha:    alpha,
		XSize:    sys.StateDim(),
		Ordering: linalg.ColMajor,
		STol:     integrators.DefaultTolerance,
		XTol:     integrators.DefaultTolerance,
		MaxIter:  integrators.DefaultMaxIter,
		Field:    sys,
		Jacobian: sys,
	}
}

// thetaResidual evaluates the step equation at next.
func thetaResidual(sys dynamo.System, ts, alpha, t float64, x, next, u []float64) []float64 {
	n := len(x)
	fk := make([]float64, n)
	fk1 := make([]float64, n)
	sys.Eval(fk, t, x, u, nil, nil)
	sys.Eval(fk1, t, next, u, nil, nil)

	g := make([]float64, n)
	for i := range g {
		g[i] = x[i] - next[i] + (1-alpha)*ts*fk[i] + alpha*ts*fk1[i]
	}
	return g
}

var _ = Describe("Step", func() {
	Context("with alpha = 0", func() {
		DescribeTable("equals x + ts·f(t, x, u)",
			func(dim int, rate, ts float64) {
				sys := &models.Decay{Rate: rate, Dim: dim}
				x := make([]float64, dim)
				for i := range x {
					x[i] = float64(i+1) * 0.5
				}
				u := []float64{0.3}
				next := make([]float64, dim)

				rep, err := integrators.Step(configFor(sys, ts, 0), next, 0, x, u, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.Status).To(Equal(integrators.Success))
				Expect(rep.Implicit).To(BeFalse())

				for i := range x {
					Expect(next[i]).To(BeNumerically("~", x[i]+ts*(-rate*x[i]+u[0]), 1e-15))
				}
			},
			Entry("scalar", 1, 1.0, 0.1),
			Entry("three states", 3, 2.0, 0.01),
			Entry("eight states", 8, 0.5, 0.2),
		)

		It("never touches the backend allocator", func() {
			b := &countingBackend{}
			cfg := configFor(models.NewVanDerPol(), 0.01, 0)
			cfg.Backend = b
			next := make([]float64, 2)

			_, err := integrators.Step(cfg, next, 0, []float64{2, 0}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.allocs).To(BeZero())
		})

		It("does not need a Jacobian", func() {
			cfg := configFor(models.NewVanDerPol(), 0.01, 0)
			cfg.Jacobian = nil
			next := make([]float64, 2)

			rep, err := integrators.Step(cfg, next, 0, []float64{2, 0}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Status).To(Equal(integrators.Success))
		})
	})

	Context("with alpha > 0", func() {
		It("solves backward Euler on a linear system in one iteration", func() {
			sys := &models.Decay{Rate: 4, Dim: 3}
			x := []float64{1, -2, 0.5}
			next := make([]float64, 3)
			ts := 0.1

			rep, err := integrators.Step(configFor(sys, ts, 1), next, 0, x, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Status).To(Equal(integrators.Success))
			Expect(rep.Implicit).To(BeTrue())
			Expect(rep.Newton.Outcome).To(Equal(newton.ResidualToleranceMet))
			Expect(rep.Newton.Iterations).To(Equal(1))

			for i := range x {
				Expect(next[i]).To(BeNumerically("~", x[i]/(1+4*ts), 1e-13))
			}
		})

		DescribeTable("matches the closed-form theta step of the decay equation",
			func(alpha float64) {
				sys := &models.Decay{Rate: 10, Dim: 1}
				ts := 0.05
				next := make([]float64, 1)

				_, err := integrators.Step(configFor(sys, ts, alpha), next, 0, []float64{1}, nil, nil)
				Expect(err).NotTo(HaveOccurred())

				want := (1 - (1-alpha)*10*ts) / (1 + alpha*10*ts)
				Expect(next[0]).To(BeNumerically("~", want, 1e-12))
			},
			Entry("alpha 0.25", 0.25),
			Entry("Tustin", 0.5),
			Entry("backward Euler", 1.0),
		)

		DescribeTable("drives the step residual below the tolerance",
			func(alpha, mu float64, order linalg.Ordering) {
				sys := models.NewVanDerPol()
				sys.Mu = mu
				cfg := configFor(sys, 0.05, alpha)
				cfg.Ordering = order
				x := []float64{2, -0.5}
				next := make([]float64, 2)

				rep, err := integrators.Step(cfg, next, 0.3, x, nil, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.Newton.Outcome.Converged()).To(BeTrue())
				Expect(rep.Newton.Iterations).To(BeNumerically("<=", cfg.MaxIter))

				g := thetaResidual(sys, 0.05, alpha, 0.3, x, next, nil)
				Expect(math.Hypot(g[0], g[1])).To(BeNumerically("<", 1e-10))
			},
			Entry("Tustin, row-major", 0.5, 1.0, linalg.RowMajor),
			Entry("Tustin, column-major", 0.5, 1.0, linalg.ColMajor),
			Entry("backward Euler on a stiff oscillator", 1.0, 20.0, linalg.ColMajor),
			Entry("alpha 0.75", 0.75, 5.0, linalg.RowMajor),
		)

		It("does not modify x", func() {
			x := []float64{2, -0.5}
			next := make([]float64, 2)
			_, err := integrators.Step(configFor(models.NewVanDerPol(), 0.05, 0.5), next, 0, x, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(x).To(Equal([]float64{2, -0.5}))
		})

		It("reads the next input at UOffset", func() {
			sys := &models.Decay{Rate: 0, Dim: 1}
			u := []float64{1, 3}
			next := make([]float64, 1)

			cfg := configFor(sys, 0.1, 0.5)
			cfg.UOffset = 1
			_, err := integrators.Step(cfg, next, 0, []float64{0}, u, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(next[0]).To(BeNumerically("~", 0.1*(0.5*1+0.5*3), 1e-14))

			cfg.UOffset = 0
			_, err = integrators.Step(cfg, next, 0, []float64{0}, u, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(next[0]).To(BeNumerically("~", 0.1, 1e-14))
		})

		It("evaluates the Jacobian with the next input", func() {
			// f(x, u) = −u₀·x, with u₀ = 1 now and 3 at the next point.
			var seen [][]float64
			cfg := integrators.Config{
				Ts:       0.1,
				Alpha:    1,
				XSize:    1,
				UOffset:  1,
				Ordering: linalg.ColMajor,
				STol:     integrators.DefaultTolerance,
				XTol:     integrators.DefaultTolerance,
				MaxIter:  integrators.DefaultMaxIter,
				Field: dynamo.VectorFieldFunc(func(dst []float64, _ float64, x, u []float64, _ [][]float64, _ any) {
					dst[0] = -u[0] * x[0]
				}),
				Jacobian: dynamo.JacobianFunc(func(dst *linalg.Matrix, _ float64, _, u []float64, _ [][]float64, _ any) {
					seen = append(seen, append([]float64(nil), u...))
					dst.Set(0, 0, -u[0])
				}),
			}
			next := make([]float64, 1)

			rep, err := integrators.Step(cfg, next, 0, []float64{1}, []float64{1, 3}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Newton.Outcome).To(Equal(newton.ResidualToleranceMet))
			Expect(rep.Newton.Iterations).To(Equal(1))
			Expect(next[0]).To(BeNumerically("~", 1/1.3, 1e-14))
			Expect(seen).NotTo(BeEmpty())
			Expect(seen).To(HaveEach(Equal([]float64{3})))
		})

		It("reports a non-finite residual as a generic failure", func() {
			// f(x) = −√x has no real value at x = −1.
			cfg := integrators.Config{
				Ts:       0.1,
				Alpha:    1,
				XSize:    1,
				Ordering: linalg.ColMajor,
				STol:     integrators.DefaultTolerance,
				XTol:     integrators.DefaultTolerance,
				MaxIter:  integrators.DefaultMaxIter,
				Field: dynamo.VectorFieldFunc(func(dst []float64, _ float64, x, _ []float64, _ [][]float64, _ any) {
					dst[0] = -math.Sqrt(x[0])
				}),
				Jacobian: dynamo.JacobianFunc(func(dst *linalg.Matrix, _ float64, x, _ []float64, _ [][]float64, _ any) {
					dst.Set(0, 0, -0.5/math.Sqrt(x[0]))
				}),
			}
			next := make([]float64, 1)

			rep, err := integrators.Step(cfg, next, 0, []float64{-1}, nil, nil)
			Expect(errors.Is(err, newton.ErrIllegalJacobian)).To(BeTrue())
			Expect(rep.Status).To(Equal(integrators.GenericFailure))
			Expect(rep.Newton.Outcome).To(Equal(newton.IllegalJacobian))
			Expect(rep.Newton.Iterations).To(BeZero())
		})

		It("is deterministic", func() {
			cfg := configFor(models.NewVanDerPol(), 0.05, 0.5)
			a := make([]float64, 2)
			b := make([]float64, 2)
			_, err := integrators.Step(cfg, a, 0, []float64{2, 0}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = integrators.Step(cfg, b, 0, []float64{2, 0}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
		})

		It("reports a singular step Jacobian as a generic failure", func() {
			// α·ts·(−rate) − 1 = 0
			sys := &models.Decay{Rate: -10, Dim: 2}
			next := make([]float64, 2)

			rep, err := integrators.Step(configFor(sys, 0.1, 1), next, 0, []float64{1, 1}, nil, nil)
			Expect(errors.Is(err, newton.ErrSingularJacobian)).To(BeTrue())
			Expect(rep.Status).To(Equal(integrators.GenericFailure))
			Expect(rep.Newton.Outcome).To(Equal(newton.SingularJacobian))
			Expect(rep.Newton.Iterations).To(BeZero())
		})

		It("reports a non-finite Jacobian as a generic failure", func() {
			cfg := configFor(models.NewVanDerPol(), 0.1, 0.5)
			cfg.Jacobian = dynamo.JacobianFunc(func(dst *linalg.Matrix, _ float64, _, _ []float64, _ [][]float64, _ any) {
				dst.Set(0, 0, math.NaN())
			})
			next := make([]float64, 2)

			rep, err := integrators.Step(cfg, next, 0, []float64{2, 0}, nil, nil)
			Expect(errors.Is(err, newton.ErrIllegalJacobian)).To(BeTrue())
			Expect(rep.Status).To(Equal(integrators.GenericFailure))
		})

		It("forwards data to the callbacks", func() {
			var seen []any
			sys := &models.Decay{Rate: 1, Dim: 1}
			cfg := configFor(sys, 0.1, 0.5)
			cfg.Data = "ctx"
			cfg.Field = dynamo.VectorFieldFunc(func(dst []float64, t float64, x, u []float64, p [][]float64, data any) {
				seen = append(seen, data)
				sys.Eval(dst, t, x, u, p, data)
			})
			next := make([]float64, 1)

			_, err := integrators.Step(cfg, next, 0, []float64{1}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(BeEmpty())
			Expect(seen).To(HaveEach("ctx"))
		})
	})

	Context("workspace", func() {
		// Four step buffers, then the residual and Jacobian of the solver.
		DescribeTable("is released on every path",
			func(failAt int, status integrators.Status) {
				b := &countingBackend{failAt: failAt}
				cfg := configFor(models.NewVanDerPol(), 0.05, 0.5)
				cfg.Backend = b
				next := make([]float64, 2)

				rep, err := integrators.Step(cfg, next, 0, []float64{2, 0}, nil, nil)
				Expect(rep.Status).To(Equal(status))
				if status == integrators.OutOfMemory {
					Expect(errors.Is(err, linalg.ErrOutOfMemory)).To(BeTrue())
				} else {
					Expect(err).NotTo(HaveOccurred())
					Expect(b.allocs).To(Equal(6))
				}
				Expect(b.frees).To(Equal(b.allocs))
			},
			Entry("no failure", 0, integrators.Success),
			Entry("first step buffer", 1, integrators.OutOfMemory),
			Entry("second step buffer", 2, integrators.OutOfMemory),
			Entry("step Jacobian", 3, integrators.OutOfMemory),
			Entry("negative identity", 4, integrators.OutOfMemory),
			Entry("solver residual", 5, integrators.OutOfMemory),
			Entry("solver Jacobian", 6, integrators.OutOfMemory),
		)

		It("is released after a numerical failure", func() {
			b := &countingBackend{}
			cfg := configFor(&models.Decay{Rate: -10, Dim: 2}, 0.1, 1)
			cfg.Backend = b
			next := make([]float64, 2)

			_, err := integrators.Step(cfg, next, 0, []float64{1, 1}, nil, nil)
			Expect(err).To(HaveOccurred())
			Expect(b.allocs).To(Equal(6))
			Expect(b.frees).To(Equal(6))
		})
	})

	Context("validation", func() {
		base := func() integrators.Config { return configFor(models.NewVanDerPol(), 0.05, 0.5) }

		DescribeTable("rejects bad input before allocating",
			func(mutate func(*integrators.Config), x, next, u []float64, status integrators.Status, sentinel error) {
				b := &countingBackend{}
				cfg := base()
				cfg.Backend = b
				mutate(&cfg)

				rep, err := integrators.Step(cfg, next, 0, x, u, nil)
				Expect(err).To(MatchError(sentinel))
				Expect(rep.Status).To(Equal(status))
				Expect(b.allocs).To(BeZero())
			},
			Entry("nil field", func(c *integrators.Config) { c.Field = nil },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.NullInput, dynamo.ErrNullInput),
			Entry("nil jacobian", func(c *integrators.Config) { c.Jacobian = nil },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.NullInput, dynamo.ErrNullInput),
			Entry("nil state", func(*integrators.Config) {},
				nil, make([]float64, 2), nil, integrators.NullInput, dynamo.ErrNullInput),
			Entry("nil output", func(*integrators.Config) {},
				[]float64{1, 1}, nil, nil, integrators.NullInput, dynamo.ErrNullInput),
			Entry("short state", func(*integrators.Config) {},
				[]float64{1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrDimensionMismatch),
			Entry("zero size", func(c *integrators.Config) { c.XSize = 0 },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrDimensionMismatch),
			Entry("alpha above one", func(c *integrators.Config) { c.Alpha = 1.5 },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
			Entry("negative alpha", func(c *integrators.Config) { c.Alpha = -0.1 },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
			Entry("NaN alpha", func(c *integrators.Config) { c.Alpha = math.NaN() },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
			Entry("infinite step", func(c *integrators.Config) { c.Ts = math.Inf(1) },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
			Entry("offset past the input", func(c *integrators.Config) { c.UOffset = 2 },
				[]float64{1, 1}, make([]float64, 2), []float64{1}, integrators.GenericFailure, dynamo.ErrDimensionMismatch),
			Entry("negative iteration budget", func(c *integrators.Config) { c.MaxIter = -1 },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
			Entry("negative tolerance", func(c *integrators.Config) { c.STol = -1 },
				[]float64{1, 1}, make([]float64, 2), nil, integrators.GenericFailure, dynamo.ErrParameterBounds),
		)
	})
})

var _ = Describe("Euler", func() {
	It("steps with its bound config", func() {
		cfg := configFor(models.NewVanDerPol(), 0.05, 0.5)
		e := integrators.NewEuler(cfg)
		Expect(e.Config().Alpha).To(Equal(0.5))

		a := make([]float64, 2)
		b := make([]float64, 2)
		_, err := e.Step(a, 0, []float64{2, 0}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = integrators.Step(cfg, b, 0, []float64{2, 0}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("Status", func() {
	It("has readable names", func() {
		Expect(integrators.Success.String()).To(Equal("success"))
		Expect(integrators.OutOfMemory.String()).To(Equal("out-of-memory"))
		Expect(integrators.NullInput.String()).To(Equal("null-input"))
		Expect(integrators.GenericFailure.String()).To(Equal("generic-failure"))
		Expect(integrators.Status(42).String()).To(Equal("Status(42)"))
	})
})

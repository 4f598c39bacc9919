package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/thetastep/internal/config"
	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/experiment"
	"github.com/san-kum/thetastep/internal/linalg"
)

// addRunFlags registers the flags shared by run, compare and live.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&scheme, "scheme", config.DefaultScheme, "scheme (explicit, tustin, implicit)")
	cmd.Flags().Float64Var(&alphaFlag, "alpha", 0.5, "blend coefficient, overrides --scheme")
	cmd.Flags().BoolVar(&staggered, "staggered", false, "pass u(t) and u(t+dt) to each step")
	cmd.Flags().StringVar(&ordering, "ordering", linalg.ColMajor.String(), "jacobian storage order (row, col)")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "newton iteration budget")
	cmd.Flags().Float64Var(&sTol, "s-tol", config.DefaultTol, "newton residual tolerance")
	cmd.Flags().Float64Var(&xTol, "x-tol", config.DefaultTol, "newton step tolerance")
	cmd.Flags().Float64SliceVar(&initState, "x0", nil, "initial state")
	cmd.Flags().StringToStringVar(&params, "param", nil, "model parameter, name=value")
}

// resolveConfig layers defaults, then the preset, then the config file, then
// any flag set on the command line.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		fc, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if fc.Model != "" && fc.Model != model {
			return nil, fmt.Errorf("config file is for model %s, not %s", fc.Model, model)
		}
		cfg = fc
		cfg.Model = model
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("scheme") {
		cfg.Scheme = scheme
		cfg.Alpha = nil
	}
	if flags.Changed("alpha") {
		cfg.SetAlpha(alphaFlag)
	}
	if flags.Changed("staggered") {
		cfg.StaggeredInput = staggered
	}
	if flags.Changed("ordering") {
		cfg.Ordering = ordering
	}
	if flags.Changed("max-iter") {
		cfg.Newton.MaxIter = maxIter
	}
	if flags.Changed("s-tol") {
		cfg.Newton.STol = sTol
	}
	if flags.Changed("x-tol") {
		cfg.Newton.XTol = xTol
	}
	if flags.Changed("x0") {
		cfg.InitState = append([]float64(nil), initState...)
	}
	if flags.Changed("param") {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for name, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// experimentConfig turns a resolved config into what the experiment runs.
// An explicit alpha wins over the scheme name; a missing initial state
// falls back to the model default.
func experimentConfig(cfg *config.Config, reg *experiment.Registry, sys dynamo.System) (experiment.Config, error) {
	alpha, err := resolveAlpha(cfg, reg)
	if err != nil {
		return experiment.Config{}, err
	}

	x0 := dynamo.State(cfg.InitState).Clone()
	if len(x0) == 0 {
		d, ok := sys.(dynamo.DefaultStater)
		if !ok {
			return experiment.Config{}, fmt.Errorf("model %s needs an initial state (--x0)", cfg.Model)
		}
		x0 = d.DefaultState()
	}
	if len(x0) != sys.StateDim() {
		return experiment.Config{}, fmt.Errorf("initial state has %d elements, want %d: %w",
			len(x0), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}

	return experiment.Config{
		Model:          cfg.Model,
		Alpha:          alpha,
		InitState:      x0,
		Dt:             cfg.Dt,
		Duration:       cfg.Duration,
		STol:           cfg.Newton.STol,
		XTol:           cfg.Newton.XTol,
		MaxIter:        cfg.Newton.MaxIter,
		Ordering:       cfg.GetOrdering(),
		StaggeredInput: cfg.StaggeredInput,
		Params:         cfg.Params,
	}, nil
}

func resolveAlpha(cfg *config.Config, reg *experiment.Registry) (float64, error) {
	if cfg.Alpha != nil {
		return *cfg.Alpha, nil
	}
	return reg.GetScheme(cfg.Scheme)
}

// schemeLabel names a run for storage and tables.
func schemeLabel(cfg *config.Config) string {
	if cfg.Alpha != nil {
		return fmt.Sprintf("alpha=%g", *cfg.Alpha)
	}
	return cfg.Scheme
}

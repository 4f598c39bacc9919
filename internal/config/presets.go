package config

import "sort"

func alpha(a float64) *float64 { return &a }

var twoTank = Config{
	Model: "two_tank", Dt: 0.01, Duration: 500, Ordering: "col-major",
	InitState: []float64{1e-6, 0.1},
	Newton:    NewtonConfig{STol: 1e-12, XTol: 1e-12, MaxIter: 100},
}

func preset(base Config, edit func(*Config)) *Config {
	c := base.Clone()
	edit(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"two_tank": {
		"explicit": preset(twoTank, func(c *Config) { c.Scheme = "explicit" }),
		"tustin":   preset(twoTank, func(c *Config) { c.Scheme = "tustin" }),
		"implicit": preset(twoTank, func(c *Config) { c.Scheme = "implicit" }),
		"staggered": preset(twoTank, func(c *Config) {
			c.Scheme = "tustin"
			c.StaggeredInput = true
		}),
	},
	"vanderpol": {
		"classic": {
			Model: "vanderpol", Scheme: "tustin", Dt: 0.01, Duration: 20.0, Ordering: "row-major",
			InitState: []float64{2, 0},
			Newton:    NewtonConfig{STol: 1e-12, XTol: 1e-12, MaxIter: 50},
		},
		"stiff": {
			Model: "vanderpol", Scheme: "implicit", Dt: 0.01, Duration: 200.0, Ordering: "row-major",
			InitState: []float64{2, 0},
			Params:    map[string]float64{"mu": 100},
			Newton:    NewtonConfig{STol: 1e-10, XTol: 1e-12, MaxIter: 50},
		},
	},
	"pendulum": {
		"small": {
			Model: "pendulum", Scheme: "tustin", Dt: 0.01, Duration: 20.0, Ordering: "col-major",
			InitState: []float64{0.2, 0.0},
			Params:    map[string]float64{"damping": 0},
			Newton:    NewtonConfig{STol: 1e-12, XTol: 1e-12, MaxIter: 50},
		},
		"large": {
			Model: "pendulum", Scheme: "tustin", Dt: 0.01, Duration: 20.0, Ordering: "col-major",
			InitState: []float64{2.5, 0.0},
			Newton:    NewtonConfig{STol: 1e-12, XTol: 1e-12, MaxIter: 50},
		},
	},
	"decay": {
		"stiff": {
			Model: "decay", Alpha: alpha(0.75), Dt: 0.1, Duration: 5.0, Ordering: "col-major",
			InitState: []float64{1},
			Params:    map[string]float64{"rate": 50},
			Newton:    NewtonConfig{STol: 1e-12, XTol: 1e-12, MaxIter: 10},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	return sortedNames(modelPresets)
}

func ListModels() []string {
	return sortedNames(Presets)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package config

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/thetastep/internal/linalg"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultScheme   = "tustin"
	DefaultTol      = 1e-12
	DefaultMaxIter  = 100
)

type Config struct {
	Model    string   `yaml:"model"`
	Scheme   string   `yaml:"scheme"`
	Alpha    *float64 `yaml:"alpha,omitempty"` // overrides Scheme when set
	Dt       float64  `yaml:"dt"`
	Duration float64  `yaml:"duration"`
	Ordering string   `yaml:"ordering"`

	StaggeredInput bool               `yaml:"staggered_input"`
	InitState      []float64          `yaml:"init_state,omitempty"`
	Params         map[string]float64 `yaml:"params,omitempty"`
	Newton         NewtonConfig       `yaml:"newton"`
}

type NewtonConfig struct {
	STol    float64 `yaml:"s_tol"`
	XTol    float64 `yaml:"x_tol"`
	MaxIter int     `yaml:"max_iter"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    "two_tank",
		Scheme:   DefaultScheme,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Ordering: linalg.ColMajor.String(),
		Newton: NewtonConfig{
			STol:    DefaultTol,
			XTol:    DefaultTol,
			MaxIter: DefaultMaxIter,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields a run cannot start without. Model and scheme
// names are resolved later against the registry.
func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Alpha != nil && !(*c.Alpha >= 0 && *c.Alpha <= 1) {
		return fmt.Errorf("alpha must be in [0,1], got %g", *c.Alpha)
	}
	if _, err := linalg.ParseOrdering(c.Ordering); err != nil {
		return err
	}
	if c.Newton.MaxIter < 0 || c.Newton.STol < 0 || c.Newton.XTol < 0 {
		return fmt.Errorf("newton settings must be non-negative: %+v", c.Newton)
	}
	return nil
}

func (c *Config) GetOrdering() linalg.Ordering {
	o, err := linalg.ParseOrdering(c.Ordering)
	if err != nil {
		return linalg.ColMajor
	}
	return o
}

func (c *Config) SetAlpha(alpha float64) {
	c.Alpha = &alpha
}

// Clone returns a deep copy, so presets can be overridden safely.
func (c *Config) Clone() *Config {
	cc := *c
	if c.Alpha != nil {
		a := *c.Alpha
		cc.Alpha = &a
	}
	cc.InitState = slices.Clone(c.InitState)
	cc.Params = maps.Clone(c.Params)
	return &cc
}

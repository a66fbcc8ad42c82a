// Package config loads simulator settings from a YAML file, a .env file and
// PUFSIM_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/sweep"
)

// Codec kinds.
const (
	CodecNone            = "none"
	CodecHamming         = "hamming"
	CodecHammingExtended = "hamming-extended"
	CodecBCH             = "bch"
)

// Flip model kinds.
const (
	FlipModelLinear      = "linear"
	FlipModelExponential = "exponential"
)

// Config is the complete simulator configuration.
type Config struct {
	Array  ArrayConfig    `yaml:"array"`
	Codec  CodecConfig    `yaml:"codec"`
	Enroll puf.EnrollSpec `yaml:"enroll"`
	Health HealthConfig   `yaml:"health"`
	Sweep  SweepConfig    `yaml:"sweep"`

	// Aging is the drift and storage pattern applied by simulated aging.
	Aging sram.AgingProfile `yaml:"aging"`

	// MonitorPort is the port of the monitoring server. Zero picks a random
	// port.
	MonitorPort int `yaml:"monitor_port"`
}

// ArrayConfig describes the fabricated array.
type ArrayConfig struct {
	// NumCells is used when Rows and Cols are both zero.
	NumCells int `yaml:"num_cells"`
	Rows     int `yaml:"rows"`
	Cols     int `yaml:"cols"`

	Seed     uint64  `yaml:"seed"`
	OnesBias float64 `yaml:"ones_bias"`

	// Stability is the distribution of cell stabilities.
	Stability sram.Stability `yaml:"stability"`

	FlipModel FlipModelConfig `yaml:"flip_model"`
}

// FlipModelConfig selects and parameterizes the noise model.
type FlipModelConfig struct {
	Kind string `yaml:"kind"`

	// TemperatureCoefficient and VoltageCoefficient are the coefficients of
	// the linear model, or the rates of the exponential one.
	TemperatureCoefficient float64 `yaml:"temperature_coefficient"`
	VoltageCoefficient     float64 `yaml:"voltage_coefficient"`
}

// CodecConfig selects the error-correcting code.
type CodecConfig struct {
	Kind string `yaml:"kind"`

	// K is the data length of the code. Zero derives it from the enrolled
	// response length.
	K int `yaml:"k"`

	// T is the number of errors a BCH code corrects.
	T int `yaml:"t"`
}

// HealthConfig parameterizes health checks.
type HealthConfig struct {
	Conditions sram.Conditions `yaml:"conditions"`
	Trials     int             `yaml:"trials"`
	Corrected  bool            `yaml:"corrected"`
}

// SweepConfig parameterizes parameter sweeps.
type SweepConfig struct {
	Grid sweep.Grid `yaml:"grid"`

	Devices  int    `yaml:"devices"`
	BaseSeed uint64 `yaml:"base_seed"`
	Trials   int    `yaml:"trials"`

	Corrected bool `yaml:"corrected"`

	// Workers defaults to one per CPU when zero.
	Workers int `yaml:"workers"`

	// AgingTemperature is where points with aging hours operate. Zero means
	// nominal temperature.
	AgingTemperature float64 `yaml:"aging_temperature"`

	// Record is the path of the SQLite database, without the .sqlite3
	// suffix. Empty picks a unique name.
	Record string `yaml:"record"`
	Table  string `yaml:"table"`
}

// Default returns the configuration used for every missing key.
func Default() *Config {
	linear := sram.DefaultFlipModel()

	return &Config{
		Array: ArrayConfig{
			NumCells:  1024,
			Seed:      1,
			OnesBias:  0.5,
			Stability: sram.DefaultStability(),
			FlipModel: FlipModelConfig{
				Kind:                   FlipModelLinear,
				TemperatureCoefficient: linear.TemperatureCoefficient,
				VoltageCoefficient:     linear.VoltageCoefficient,
			},
		},
		Codec: CodecConfig{
			Kind: CodecNone,
		},
		Enroll: puf.DefaultEnrollSpec(),
		Aging:  sram.DefaultAgingProfile(),
		Health: HealthConfig{
			Conditions: sram.Nominal(0.05),
			Trials:     100,
		},
		Sweep: SweepConfig{
			Grid: sweep.Grid{
				Temperatures:  []float64{-40, 25, 85, 125},
				VoltageRatios: []float64{0.9, 1.0, 1.1},
				AgingFactors:  []float64{0.01},
			},
			Devices:  8,
			BaseSeed: 1,
			Trials:   50,
			Table:    "sweep_results",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// loads the defaults only.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return c, nil
}

// LoadAll reads the YAML file, applies the overrides of the environment and
// the given .env files, and validates the result. Missing .env files are
// skipped.
func LoadAll(path string, envFiles ...string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	env, err := ReadEnv(envFiles...)
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(env); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks every field that cannot be checked by the components
// themselves before they run.
func (c *Config) Validate() error {
	checks := []func() error{
		c.Array.validate,
		c.Codec.validate,
		c.validateEnroll,
		c.validateHealth,
		c.validateAging,
		c.Sweep.validate,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	if c.MonitorPort < 0 || c.MonitorPort > math.MaxUint16 {
		return invalid("monitor_port", "%d is not a port", c.MonitorPort)
	}

	return nil
}

func (a ArrayConfig) validate() error {
	switch {
	case a.Rows == 0 && a.Cols == 0:
		if a.NumCells <= 0 {
			return invalid("array.num_cells", "%d, need at least one cell",
				a.NumCells)
		}
	case a.Rows <= 0 || a.Cols <= 0:
		return invalid("array.rows", "shape %dx%d", a.Rows, a.Cols)
	}

	if math.IsNaN(a.OnesBias) || a.OnesBias < 0 || a.OnesBias > 1 {
		return invalid("array.ones_bias", "%v is not a probability", a.OnesBias)
	}

	if err := a.Stability.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "array.stability", Err: err}
	}

	switch a.FlipModel.Kind {
	case FlipModelLinear, FlipModelExponential:
	default:
		return invalid("array.flip_model.kind", "unknown model %q",
			a.FlipModel.Kind)
	}

	if a.FlipModel.TemperatureCoefficient < 0 ||
		a.FlipModel.VoltageCoefficient < 0 {
		return invalid("array.flip_model", "coefficients must not be negative")
	}

	return nil
}

func (c CodecConfig) validate() error {
	switch c.Kind {
	case CodecNone, CodecHamming, CodecHammingExtended:
	case CodecBCH:
		if c.T <= 0 {
			return invalid("codec.t", "%d, bch needs a positive t", c.T)
		}
	default:
		return invalid("codec.kind", "unknown codec %q", c.Kind)
	}

	if c.K < 0 {
		return invalid("codec.k", "%d is negative", c.K)
	}

	return nil
}

func (c *Config) validateEnroll() error {
	if c.Enroll.PreTestRounds < 0 {
		return invalid("enroll.pre_test_rounds", "%d is negative",
			c.Enroll.PreTestRounds)
	}

	if err := c.Enroll.Stress.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "enroll.stress", Err: err}
	}

	if err := c.Enroll.Nominal.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "enroll.nominal", Err: err}
	}

	return nil
}

func (c *Config) validateHealth() error {
	if c.Health.Trials <= 0 {
		return invalid("health.trials", "%d, need at least one",
			c.Health.Trials)
	}

	if err := c.Health.Conditions.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "health.conditions", Err: err}
	}

	return nil
}

func (c *Config) validateAging() error {
	if err := c.Aging.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "aging", Err: err}
	}

	return nil
}

func (s SweepConfig) validate() error {
	switch {
	case s.Devices <= 0:
		return invalid("sweep.devices", "%d, need at least one", s.Devices)
	case s.Trials <= 0:
		return invalid("sweep.trials", "%d, need at least one", s.Trials)
	case s.Workers < 0:
		return invalid("sweep.workers", "%d is negative", s.Workers)
	}

	for _, r := range s.Grid.PreTestRounds {
		if r < 0 {
			return invalid("sweep.grid.pre_test_rounds", "%d is negative", r)
		}
	}

	for _, a := range s.Grid.AgingFactors {
		if math.IsNaN(a) || a < 0 || a > 1 {
			return invalid("sweep.grid.aging_factors",
				"%v is not a probability", a)
		}
	}

	if err := s.Grid.Validate(); err != nil {
		return &puf.ConfigurationError{Field: "sweep.grid", Err: err}
	}

	if math.IsNaN(s.AgingTemperature) {
		return invalid("sweep.aging_temperature", "NaN")
	}

	return nil
}

func invalid(field, format string, args ...any) error {
	return &puf.ConfigurationError{
		Field: field,
		Err:   fmt.Errorf(format, args...),
	}
}

// Save writes the configuration as YAML. It refuses to overwrite an
// existing file.
func (c *Config) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
)

// EnvPrefix prefixes every environment variable the configuration reads.
const EnvPrefix = "PUFSIM_"

// Env holds environment overrides by variable name.
type Env map[string]string

// ReadEnv collects the PUFSIM_* variables from the given .env files and the
// process environment. The process environment takes precedence, and a later
// file does not override an earlier one. Missing files are skipped.
func ReadEnv(files ...string) (Env, error) {
	env := Env{}

	for _, f := range files {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}

		for k, v := range values {
			if _, ok := env[k]; !ok && strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

var envBindings = []envBinding{
	{"NUM_CELLS", intVar(func(c *Config) *int { return &c.Array.NumCells })},
	{"ROWS", intVar(func(c *Config) *int { return &c.Array.Rows })},
	{"COLS", intVar(func(c *Config) *int { return &c.Array.Cols })},
	{"SEED", uintVar(func(c *Config) *uint64 { return &c.Array.Seed })},
	{"ONES_BIAS", floatVar(func(c *Config) *float64 { return &c.Array.OnesBias })},
	{"STABILITY", stabilityVar(func(c *Config) *sram.Stability { return &c.Array.Stability })},
	{"STORAGE_PATTERN", stringVar(func(c *Config) *string { return (*string)(&c.Aging.StoragePattern) })},
	{"DRIFT_PER_HOUR", floatVar(func(c *Config) *float64 { return &c.Aging.DriftPerHour })},
	{"FLIP_MODEL", stringVar(func(c *Config) *string { return &c.Array.FlipModel.Kind })},
	{"CODEC", stringVar(func(c *Config) *string { return &c.Codec.Kind })},
	{"CODEC_K", intVar(func(c *Config) *int { return &c.Codec.K })},
	{"CODEC_T", intVar(func(c *Config) *int { return &c.Codec.T })},
	{"PRE_TEST_ROUNDS", intVar(func(c *Config) *int { return &c.Enroll.PreTestRounds })},
	{"HEALTH_TRIALS", intVar(func(c *Config) *int { return &c.Health.Trials })},
	{"SWEEP_DEVICES", intVar(func(c *Config) *int { return &c.Sweep.Devices })},
	{"SWEEP_TRIALS", intVar(func(c *Config) *int { return &c.Sweep.Trials })},
	{"SWEEP_WORKERS", intVar(func(c *Config) *int { return &c.Sweep.Workers })},
	{"SWEEP_RECORD", stringVar(func(c *Config) *string { return &c.Sweep.Record })},
	{"MONITOR_PORT", intVar(func(c *Config) *int { return &c.MonitorPort })},
}

// ApplyEnv overrides the configuration with the variables in env.
func (c *Config) ApplyEnv(env Env) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name

		v, ok := env[name]
		if !ok {
			continue
		}

		if err := b.apply(c, strings.TrimSpace(v)); err != nil {
			return &puf.ConfigurationError{Field: name, Err: err}
		}
	}

	return nil
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		*field(c) = n

		return nil
	}
}

func uintVar(field func(*Config) *uint64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}

		*field(c) = n

		return nil
	}
}

func floatVar(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}

		*field(c) = f

		return nil
	}
}

func stabilityVar(field func(*Config) *sram.Stability) func(*Config, string) error {
	return func(c *Config, v string) error {
		s, err := sram.ParseStability(v)
		if err != nil {
			return err
		}

		*field(c) = s

		return nil
	}
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

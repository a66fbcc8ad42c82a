package sram

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidStoragePattern is returned for unknown storage patterns.
var ErrInvalidStoragePattern = errors.New("unknown storage pattern")

// A StoragePattern is what the array holds while the device is operating.
// It decides how bias temperature instability shifts cell stability.
type StoragePattern string

// Storage patterns.
const (
	// StorageStatic keeps the same value in every cell. Recoverable stress
	// builds on one transistor and erodes the mismatch.
	StorageStatic StoragePattern = "static"

	// StorageRandom writes fresh random data. Recoverable stress averages
	// out but switching adds hot carrier damage.
	StorageRandom StoragePattern = "random"

	// StorageOptimized stores the complement of the preferred value so that
	// stress reinforces the mismatch.
	StorageOptimized StoragePattern = "optimized"
)

// StoragePatterns lists the known patterns.
func StoragePatterns() []StoragePattern {
	return []StoragePattern{StorageStatic, StorageRandom, StorageOptimized}
}

// Resolved maps the empty pattern to StorageStatic.
func (s StoragePattern) Resolved() StoragePattern {
	if s == "" {
		return StorageStatic
	}

	return s
}

// Validate rejects unknown patterns. The empty pattern is valid.
func (s StoragePattern) Validate() error {
	switch s.Resolved() {
	case StorageStatic, StorageRandom, StorageOptimized:
		return nil
	}

	return fmt.Errorf("%q: %w", string(s), ErrInvalidStoragePattern)
}

// stabilityRate is the stability change after 1000 effective hours.
func (s StoragePattern) stabilityRate() float64 {
	switch s.Resolved() {
	case StorageRandom:
		return -0.05
	case StorageOptimized:
		return 0.02
	default:
		return -0.10
	}
}

// AgingProfile converts operating hours at a temperature into a permanent
// drift probability for each cell and a stability shift for the array.
type AgingProfile struct {
	// DriftPerHour is the probability that a cell drifts during one hour at
	// nominal temperature.
	DriftPerHour float64 `yaml:"drift_per_hour"`

	// DoublingTemperature is the temperature rise that doubles the aging
	// rate.
	DoublingTemperature float64 `yaml:"doubling_temperature"`

	// StoragePattern is what the array holds while operating. Empty means
	// StorageStatic.
	StoragePattern StoragePattern `yaml:"storage_pattern,omitempty"`
}

// DefaultAgingProfile drifts one cell in a million per hour at room
// temperature, doubles the rate every 20 degrees and stores static data.
func DefaultAgingProfile() AgingProfile {
	return AgingProfile{
		DriftPerHour:        1e-6,
		DoublingTemperature: 20,
		StoragePattern:      StorageStatic,
	}
}

// Validate checks that the profile describes a probability and a known
// storage pattern.
func (p AgingProfile) Validate() error {
	if err := probabilityMustBeValid(p.DriftPerHour); err != nil {
		return fmt.Errorf("drift per hour: %w", err)
	}

	if math.IsNaN(p.DoublingTemperature) || p.DoublingTemperature < 0 {
		return fmt.Errorf("doubling temperature %v: %w",
			p.DoublingTemperature, ErrInvalidConditions)
	}

	return p.StoragePattern.Validate()
}

// Acceleration returns the Arrhenius-style speed-up relative to nominal
// temperature.
func (p AgingProfile) Acceleration(temperature float64) float64 {
	if p.DoublingTemperature <= 0 {
		return 1
	}

	return math.Pow(2, (temperature-NominalTemperature)/p.DoublingTemperature)
}

// EffectiveHours converts hours at a temperature into hours at nominal
// temperature.
func (p AgingProfile) EffectiveHours(hours, temperature float64) float64 {
	if hours <= 0 {
		return 0
	}

	return hours * p.Acceleration(temperature)
}

// DriftProbability returns the probability that a cell drifts at least once
// over the given hours at the given temperature.
func (p AgingProfile) DriftProbability(hours, temperature float64) float64 {
	if hours <= 0 || p.DriftPerHour <= 0 {
		return 0
	}

	effectiveHours := p.EffectiveHours(hours, temperature)
	survive := math.Pow(1-clamp01(p.DriftPerHour), effectiveHours)

	return clamp01(1 - survive)
}

// StabilityShift returns the change of every cell's stability after the
// given effective hours. It follows a square-root law and its sign depends on
// the storage pattern.
func (p AgingProfile) StabilityShift(effectiveHours float64) float64 {
	if effectiveHours <= 0 {
		return 0
	}

	return p.StoragePattern.stabilityRate() * math.Sqrt(effectiveHours/1000)
}

package sram

import (
	"fmt"
	"math"
)

// Nominal operating point.
const (
	NominalTemperature  = 25.0
	NominalVoltageRatio = 1.0
)

// Conditions are the environmental parameters of one power-up.
type Conditions struct {
	// AgingFactor is the flip probability at nominal temperature and voltage.
	AgingFactor float64 `yaml:"aging_factor"`

	// Temperature is the ambient temperature in degrees Celsius.
	Temperature float64 `yaml:"temperature"`

	// VoltageRatio is the supply voltage relative to nominal.
	VoltageRatio float64 `yaml:"voltage_ratio"`
}

// Nominal returns room-temperature, nominal-voltage conditions with the given
// aging factor.
func Nominal(agingFactor float64) Conditions {
	return Conditions{
		AgingFactor:  agingFactor,
		Temperature:  NominalTemperature,
		VoltageRatio: NominalVoltageRatio,
	}
}

// Validate rejects NaN values and aging factors outside [0, 1].
func (c Conditions) Validate() error {
	if math.IsNaN(c.Temperature) || math.IsNaN(c.VoltageRatio) {
		return fmt.Errorf("conditions %+v: %w", c, ErrInvalidConditions)
	}

	if err := probabilityMustBeValid(c.AgingFactor); err != nil {
		return fmt.Errorf("aging factor: %w", err)
	}

	return nil
}

func (c Conditions) String() string {
	return fmt.Sprintf("%.1fC/%.2fV/aging=%.4g",
		c.Temperature, c.VoltageRatio, c.AgingFactor)
}

// A FlipModel maps environmental conditions to a flip probability and folds
// each cell's stability into it.
//
// FlipProbability must return c.AgingFactor at nominal conditions, increase
// monotonically with the distance of temperature and voltage from nominal and
// stay within [0, 1] for every input. CellFlipProbability must return p for a
// cell with stability 1 and must not decrease as stability drops.
type FlipModel interface {
	FlipProbability(c Conditions) float64
	CellFlipProbability(p, stability float64) float64
}

// instability is the extra flip probability of a cell with stability s. A
// cell with stability 0 settles to either value with equal chance.
func instability(s float64) float64 {
	return (1 - clamp01(s)) / 2
}

// LinearFlipModel adds linear temperature and voltage excursion terms to the
// aging factor.
type LinearFlipModel struct {
	// TemperatureCoefficient is the added flip probability per degree away
	// from nominal.
	TemperatureCoefficient float64

	// VoltageCoefficient is the added flip probability per unit of voltage
	// ratio away from 1.0.
	VoltageCoefficient float64
}

// DefaultFlipModel returns the linear model used when nothing else is
// configured: 0.001 per degree and 0.15 per unit voltage ratio.
func DefaultFlipModel() LinearFlipModel {
	return LinearFlipModel{
		TemperatureCoefficient: 0.001,
		VoltageCoefficient:     0.15,
	}
}

// FlipProbability implements FlipModel.
func (m LinearFlipModel) FlipProbability(c Conditions) float64 {
	p := c.AgingFactor +
		m.TemperatureCoefficient*math.Abs(c.Temperature-NominalTemperature) +
		m.VoltageCoefficient*math.Abs(c.VoltageRatio-NominalVoltageRatio)

	return clamp01(p)
}

// CellFlipProbability adds the cell's instability to p.
func (m LinearFlipModel) CellFlipProbability(p, stability float64) float64 {
	return clamp01(p + instability(stability))
}

// ExponentialFlipModel saturates towards 1 as conditions move away from
// nominal: p = 1 - (1 - base) * exp(-(a*|dT| + b*|dV|)).
type ExponentialFlipModel struct {
	TemperatureRate float64
	VoltageRate     float64
}

// FlipProbability implements FlipModel.
func (m ExponentialFlipModel) FlipProbability(c Conditions) float64 {
	base := clamp01(c.AgingFactor)
	excursion := m.TemperatureRate*math.Abs(c.Temperature-NominalTemperature) +
		m.VoltageRate*math.Abs(c.VoltageRatio-NominalVoltageRatio)

	return clamp01(1 - (1-base)*math.Exp(-excursion))
}

// CellFlipProbability treats the condition flip and the cell's instability as
// independent events.
func (m ExponentialFlipModel) CellFlipProbability(p, stability float64) float64 {
	return clamp01(1 - (1-clamp01(p))*(1-instability(stability)))
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

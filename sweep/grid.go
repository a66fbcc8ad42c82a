package sweep

import (
	"fmt"

	"github.com/sarchlab/pufsim/sram"
)

// Point is one combination of sweep parameters.
type Point struct {
	Temperature   float64
	VoltageRatio  float64
	AgingFactor   float64
	PreTestRounds int

	// Stability is the cell stability distribution. The zero value is
	// Beta(8, 2).
	Stability sram.Stability

	// AgingHours is the operating time simulated after enrollment, stored
	// with StoragePattern.
	AgingHours     float64
	StoragePattern sram.StoragePattern
}

// Conditions returns the query conditions of the point.
func (p Point) Conditions() sram.Conditions {
	return sram.Conditions{
		AgingFactor:  p.AgingFactor,
		Temperature:  p.Temperature,
		VoltageRatio: p.VoltageRatio,
	}
}

// Grid lists the values of each swept parameter. An empty list stands for the
// nominal value, the default stability, no aging, and static storage.
type Grid struct {
	Temperatures    []float64             `yaml:"temperatures,omitempty"`
	VoltageRatios   []float64             `yaml:"voltage_ratios,omitempty"`
	AgingFactors    []float64             `yaml:"aging_factors,omitempty"`
	PreTestRounds   []int                 `yaml:"pre_test_rounds,omitempty"`
	Stabilities     []sram.Stability      `yaml:"stabilities,omitempty"`
	AgingHours      []float64             `yaml:"aging_hours,omitempty"`
	StoragePatterns []sram.StoragePattern `yaml:"storage_patterns,omitempty"`
}

// Validate rejects stabilities and storage patterns that cannot be built.
func (g Grid) Validate() error {
	for _, s := range g.Stabilities {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	for _, p := range g.StoragePatterns {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	for _, h := range g.AgingHours {
		if !(h >= 0) {
			return fmt.Errorf("aging hours %v must not be negative", h)
		}
	}

	return nil
}

// Points returns the Cartesian product of the grid, with the temperature
// varying fastest and the stability slowest.
func (g Grid) Points() []Point {
	temps := orDefault(g.Temperatures, sram.NominalTemperature)
	volts := orDefault(g.VoltageRatios, sram.NominalVoltageRatio)
	agings := orDefault(g.AgingFactors, 0)
	rounds := orDefault(g.PreTestRounds, 0)
	stabilities := orDefault(g.Stabilities, sram.Stability{})
	hours := orDefault(g.AgingHours, 0)
	patterns := orDefault(g.StoragePatterns, "")

	n := len(temps) * len(volts) * len(agings) * len(rounds) *
		len(stabilities) * len(hours) * len(patterns)
	points := make([]Point, 0, n)

	for _, s := range stabilities {
		for _, sp := range patterns {
			for _, h := range hours {
				for _, r := range rounds {
					for _, a := range agings {
						for _, v := range volts {
							for _, t := range temps {
								points = append(points, Point{
									Temperature:    t,
									VoltageRatio:   v,
									AgingFactor:    a,
									PreTestRounds:  r,
									Stability:      s,
									AgingHours:     h,
									StoragePattern: sp,
								})
							}
						}
					}
				}
			}
		}
	}

	return points
}

func orDefault[T any](values []T, def T) []T {
	if len(values) == 0 {
		return []T{def}
	}

	return values
}

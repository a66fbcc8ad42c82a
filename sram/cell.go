package sram

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCellValue is returned when writing a value other than 0 or 1
	// into a cell.
	ErrInvalidCellValue = errors.New("cell value must be 0 or 1")

	// ErrInvalidProbability is returned when a probability is outside [0, 1].
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")

	// ErrInvalidSize is returned when an array is created with no cells.
	ErrInvalidSize = errors.New("array must have at least one cell")

	// ErrInvalidConditions is returned for NaN temperatures or voltages.
	ErrInvalidConditions = errors.New("invalid operating conditions")
)

// Uniform draws uniformly distributed samples from [0, 1).
type Uniform interface {
	Float64() float64
}

// A Cell is a single bistable SRAM cell.
//
// The preferred value is fixed by manufacturing mismatch. The observed value
// is what the cell settles to on the most recent power-up. The stability says
// how strongly the mismatch holds.
type Cell struct {
	preferred uint8
	observed  uint8
	stability float64
}

// NewCell creates an ideal cell with the given preferred value. The cell
// initially reads its preferred value.
func NewCell(preferred uint8) (Cell, error) {
	return NewCellWithStability(preferred, 1)
}

// NewCellWithStability creates a cell with the given preferred value and
// stability in [0, 1].
func NewCellWithStability(preferred uint8, stability float64) (Cell, error) {
	if preferred > 1 {
		return Cell{}, fmt.Errorf("preferred value %d: %w",
			preferred, ErrInvalidCellValue)
	}

	if math.IsNaN(stability) || stability < 0 || stability > 1 {
		return Cell{}, fmt.Errorf("stability %v: %w",
			stability, ErrInvalidStability)
	}

	return Cell{
		preferred: preferred,
		observed:  preferred,
		stability: stability,
	}, nil
}

// Preferred returns the manufacturing-determined power-up value.
func (c *Cell) Preferred() uint8 {
	return c.preferred
}

// Stability returns the fabricated stability of the cell.
func (c *Cell) Stability() float64 {
	return c.stability
}

// Read returns the value observed on the last power-up or write.
func (c *Cell) Read() uint8 {
	return c.observed
}

// Write stores a value in the cell until the next power-up.
func (c *Cell) Write(v uint8) error {
	if v > 1 {
		return fmt.Errorf("write %d: %w", v, ErrInvalidCellValue)
	}

	c.observed = v

	return nil
}

// PowerUp re-evaluates the observed value. With probability p the cell
// settles to the complement of its preferred value.
func (c *Cell) PowerUp(p float64, u Uniform) uint8 {
	if u.Float64() < p {
		c.observed = 1 - c.preferred
	} else {
		c.observed = c.preferred
	}

	return c.observed
}

// Age flips the preferred value with probability p. The change is permanent
// and models threshold drift from NBTI/HCI.
func (c *Cell) Age(p float64, u Uniform) bool {
	if u.Float64() >= p {
		return false
	}

	c.preferred = 1 - c.preferred

	return true
}

func probabilityMustBeValid(p float64) error {
	if p != p || p < 0 || p > 1 {
		return fmt.Errorf("%v: %w", p, ErrInvalidProbability)
	}

	return nil
}

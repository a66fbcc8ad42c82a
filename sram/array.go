package sram

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/pufsim/bitstring"
)

// Shape describes the row and column organization of an array. Cells are
// flattened row-major.
type Shape struct {
	Rows int
	Cols int
}

// NumCells returns Rows * Cols.
func (s Shape) NumCells() int {
	return s.Rows * s.Cols
}

// An Array is a fixed-size collection of cells that powers up together.
//
// An Array owns its random source. It is not safe for concurrent use.
type Array struct {
	shape Shape
	cells []Cell
	rng   Uniform

	flipModel      FlipModel
	stabilityShift float64
}

// NewArray fabricates a single-row array with numCells unbiased ideal cells.
func NewArray(numCells int, rng *rand.Rand) (*Array, error) {
	return Fabricate(Shape{Rows: 1, Cols: numCells}, 0.5,
		FixedStability(1), rng)
}

// Fabricate creates an array whose preferred values are drawn from a
// Bernoulli distribution with the given probability of a 1 and whose cell
// stabilities are drawn from the given distribution.
func Fabricate(
	shape Shape,
	onesBias float64,
	stability Stability,
	rng *rand.Rand,
) (*Array, error) {
	if shape.Rows <= 0 || shape.Cols <= 0 {
		return nil, fmt.Errorf("shape %dx%d: %w",
			shape.Rows, shape.Cols, ErrInvalidSize)
	}

	if err := probabilityMustBeValid(onesBias); err != nil {
		return nil, fmt.Errorf("ones bias: %w", err)
	}

	if err := stability.Validate(); err != nil {
		return nil, err
	}

	if rng == nil {
		return nil, errors.New("array needs a random source")
	}

	dist := distuv.Bernoulli{P: onesBias, Src: rng}
	drawStability := stability.sampler(rng)

	cells := make([]Cell, shape.NumCells())
	for i := range cells {
		v := uint8(dist.Rand())
		cells[i] = Cell{
			preferred: v,
			observed:  v,
			stability: clamp01(drawStability()),
		}
	}

	return newArray(shape, cells, rng), nil
}

// FromPreferred builds an array of ideal cells with the given preferred values
// and random source. It is mostly useful for reproducing exact bit patterns.
func FromPreferred(preferred bitstring.BitString, u Uniform) (*Array, error) {
	cells := make([]Cell, len(preferred))

	for i, v := range preferred {
		c, err := NewCell(v)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}

		cells[i] = c
	}

	return FromCells(cells, u)
}

// FromCells builds a single-row array from prepared cells. The cells are
// copied.
func FromCells(cells []Cell, u Uniform) (*Array, error) {
	if len(cells) == 0 {
		return nil, ErrInvalidSize
	}

	if u == nil {
		return nil, errors.New("array needs a random source")
	}

	return newArray(
		Shape{Rows: 1, Cols: len(cells)},
		append([]Cell(nil), cells...),
		u,
	), nil
}

func newArray(shape Shape, cells []Cell, u Uniform) *Array {
	return &Array{
		shape:     shape,
		cells:     cells,
		rng:       u,
		flipModel: DefaultFlipModel(),
	}
}

// SetFlipModel sets how a cell's stability is folded into the flip
// probability of a power-up.
func (a *Array) SetFlipModel(m FlipModel) {
	if m == nil {
		panic("flip model must not be nil")
	}

	a.flipModel = m
}

// SetStabilityShift sets an offset added to every cell's stability before a
// power-up. Aging uses it to model recoverable threshold shifts.
func (a *Array) SetStabilityShift(shift float64) {
	a.stabilityShift = shift
}

// StabilityShift returns the offset set by SetStabilityShift.
func (a *Array) StabilityShift() float64 {
	return a.stabilityShift
}

// EffectiveStability returns the stability of cell i after the shift,
// clipped to [0, 1].
func (a *Array) EffectiveStability(i int) float64 {
	return clamp01(a.cells[i].stability + a.stabilityShift)
}

// MeanStability returns the average effective stability over all cells.
func (a *Array) MeanStability() float64 {
	sum := 0.0
	for i := range a.cells {
		sum += a.EffectiveStability(i)
	}

	return sum / float64(len(a.cells))
}

// Len returns the number of cells.
func (a *Array) Len() int {
	return len(a.cells)
}

// Shape returns the organization of the array.
func (a *Array) Shape() Shape {
	return a.shape
}

// Cell returns the cell at the flattened index i.
func (a *Array) Cell(i int) *Cell {
	return &a.cells[i]
}

// PowerUp powers up every cell independently and returns the observed
// bit-string. The condition-level flip probability p is combined with each
// cell's effective stability by the array's flip model. Ideal cells flip with
// exactly p.
func (a *Array) PowerUp(p float64) (bitstring.BitString, error) {
	if err := probabilityMustBeValid(p); err != nil {
		return nil, err
	}

	out := make(bitstring.BitString, len(a.cells))
	for i := range a.cells {
		pi := a.flipModel.CellFlipProbability(p, a.EffectiveStability(i))
		out[i] = a.cells[i].PowerUp(pi, a.rng)
	}

	return out, nil
}

// Age applies permanent drift with probability p to every cell and returns
// the number of cells whose preferred value changed.
func (a *Array) Age(p float64) (int, error) {
	if err := probabilityMustBeValid(p); err != nil {
		return 0, err
	}

	drifted := 0
	for i := range a.cells {
		if a.cells[i].Age(p, a.rng) {
			drifted++
		}
	}

	return drifted, nil
}

// Read returns the currently observed values.
func (a *Array) Read() bitstring.BitString {
	out := make(bitstring.BitString, len(a.cells))
	for i := range a.cells {
		out[i] = a.cells[i].observed
	}

	return out
}

// Preferred returns the manufacturing-determined values of all cells.
func (a *Array) Preferred() bitstring.BitString {
	out := make(bitstring.BitString, len(a.cells))
	for i := range a.cells {
		out[i] = a.cells[i].preferred
	}

	return out
}

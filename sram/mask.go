package sram

import (
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
)

// A Mask marks which cells of an array are stable. Entry i is true if cell i
// takes part in the response.
type Mask struct {
	stable []bool
}

// AllStable returns a mask of length n with every cell marked stable.
func AllStable(n int) Mask {
	m := Mask{stable: make([]bool, n)}
	for i := range m.stable {
		m.stable[i] = true
	}

	return m
}

// NewMask copies the given flags into a mask.
func NewMask(stable []bool) Mask {
	m := Mask{stable: make([]bool, len(stable))}
	copy(m.stable, stable)

	return m
}

// Len returns the number of cells covered by the mask.
func (m Mask) Len() int {
	return len(m.stable)
}

// IsStable reports whether cell i is stable.
func (m Mask) IsStable(i int) bool {
	return m.stable[i]
}

// CountStable returns the number of stable cells, which is the length of any
// projected response.
func (m Mask) CountStable() int {
	n := 0
	for _, s := range m.stable {
		if s {
			n++
		}
	}

	return n
}

// Flags returns a copy of the per-cell flags.
func (m Mask) Flags() []bool {
	out := make([]bool, len(m.stable))
	copy(out, m.stable)

	return out
}

// Project keeps the bits of full that belong to stable cells, in order.
func (m Mask) Project(full bitstring.BitString) (bitstring.BitString, error) {
	if len(full) != len(m.stable) {
		return nil, fmt.Errorf(
			"cannot project %d bits through a mask of %d cells",
			len(full), len(m.stable))
	}

	out := make(bitstring.BitString, 0, m.CountStable())
	for i, s := range m.stable {
		if s {
			out = append(out, full[i])
		}
	}

	return out, nil
}

// Package bch implements binary narrow-sense BCH codes over GF(2^m).
//
// Codes are systematic and may be shortened: a Code carries k data bits and
// deg(g) parity bits, with k + deg(g) <= 2^m - 1. Decoding runs
// Berlekamp-Massey over the 2t syndromes followed by a Chien search.
package bch

import (
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/ecc"
)

// Code is a BCH code correcting up to t errors in k data bits.
type Code struct {
	f   *field
	k   int
	t   int
	r   int
	gen []uint8
}

// New selects the smallest field degree m whose code length can hold k data
// bits plus the parity bits needed for t errors.
func New(k, t int) (*Code, error) {
	if err := argumentsMustBeValid(k, t); err != nil {
		return nil, err
	}

	for m := MinM; m <= MaxM; m++ {
		c, err := NewWithDegree(m, k, t)
		if err == nil {
			return c, nil
		}
	}

	return nil, fmt.Errorf("bch: no field up to GF(2^%d) fits k=%d, t=%d",
		MaxM, k, t)
}

// NewWithDegree creates a code over GF(2^m).
func NewWithDegree(m, k, t int) (*Code, error) {
	if err := argumentsMustBeValid(k, t); err != nil {
		return nil, err
	}

	f, err := newField(m)
	if err != nil {
		return nil, fmt.Errorf("bch: %w", err)
	}

	if 2*t >= f.n {
		return nil, fmt.Errorf("bch: t=%d too large for GF(2^%d)", t, m)
	}

	gen := f.generator(t)
	r := len(gen) - 1

	if k+r > f.n {
		return nil, fmt.Errorf("bch: k=%d with %d parity bits exceeds n=%d",
			k, r, f.n)
	}

	return &Code{f: f, k: k, t: t, r: r, gen: gen}, nil
}

func argumentsMustBeValid(k, t int) error {
	if k < 1 {
		return fmt.Errorf("bch: k must be positive, got %d", k)
	}

	if t < 1 {
		return fmt.Errorf("bch: t must be positive, got %d", t)
	}

	return nil
}

// M returns the field degree.
func (c *Code) M() int {
	return c.f.m
}

// DataLen returns k.
func (c *Code) DataLen() int {
	return c.k
}

// Capability returns t.
func (c *Code) Capability() int {
	return c.t
}

// ParityLen returns deg(g).
func (c *Code) ParityLen() int {
	return c.r
}

// CodewordLen returns k + deg(g).
func (c *Code) CodewordLen() int {
	return c.k + c.r
}

// Generator returns the generator polynomial coefficients, lowest degree
// first.
func (c *Code) Generator() bitstring.BitString {
	return bitstring.BitString(c.gen).Clone()
}

// Encode returns the deg(g) parity bits of data, highest degree first. The
// codeword is data followed by the parity.
func (c *Code) Encode(data bitstring.BitString) (bitstring.BitString, error) {
	if err := c.lengthMustBe(data, c.k); err != nil {
		return nil, err
	}

	rem := make([]uint8, c.r)
	for _, bit := range data {
		fb := bit ^ rem[c.r-1]

		copy(rem[1:], rem[:c.r-1])
		rem[0] = 0

		if fb == 1 {
			for j := 0; j < c.r; j++ {
				rem[j] ^= c.gen[j]
			}
		}
	}

	parity := make(bitstring.BitString, c.r)
	for j := range parity {
		parity[j] = rem[c.r-1-j]
	}

	return parity, nil
}

// Decode corrects data against parity and returns the data bits and the
// number of corrected errors. More than t errors yield an error wrapping
// ecc.ErrTooManyErrors.
func (c *Code) Decode(
	data, parity bitstring.BitString,
) (bitstring.BitString, int, error) {
	if err := c.lengthMustBe(data, c.k); err != nil {
		return nil, 0, err
	}

	if err := c.lengthMustBe(parity, c.r); err != nil {
		return nil, 0, err
	}

	cw := make(bitstring.BitString, 0, c.CodewordLen())
	cw = append(cw, data...)
	cw = append(cw, parity...)

	syn, clean := c.syndromes(cw)
	if clean {
		return data.Clone(), 0, nil
	}

	locator, l := c.berlekampMassey(syn)
	if l > c.t {
		return nil, 0, fmt.Errorf("bch: locator degree %d exceeds t=%d: %w",
			l, c.t, ecc.ErrTooManyErrors)
	}

	positions := c.chienSearch(locator, l)
	if len(positions) != l {
		return nil, 0, fmt.Errorf("bch: found %d roots for degree %d: %w",
			len(positions), l, ecc.ErrTooManyErrors)
	}

	n := len(cw)
	for _, d := range positions {
		cw.Flip(n - 1 - d)
	}

	return cw[:c.k].Clone(), l, nil
}

// syndromes evaluates the received polynomial at alpha^1 .. alpha^(2t).
// Codeword index idx holds the coefficient of x^(n-1-idx).
func (c *Code) syndromes(cw bitstring.BitString) ([]int, bool) {
	n := len(cw)
	syn := make([]int, 2*c.t)
	clean := true

	for i := range syn {
		s := 0
		for idx, bit := range cw {
			if bit == 1 {
				s ^= c.f.alphaPow((i + 1) * (n - 1 - idx))
			}
		}

		syn[i] = s
		if s != 0 {
			clean = false
		}
	}

	return syn, clean
}

func (c *Code) berlekampMassey(syn []int) ([]int, int) {
	f := c.f
	size := len(syn) + 1

	locator := make([]int, size)
	locator[0] = 1
	prev := make([]int, size)
	prev[0] = 1

	l := 0
	shift := 1
	prevDiscrepancy := 1

	for step := range syn {
		d := syn[step]
		for i := 1; i <= l; i++ {
			d ^= f.mul(locator[i], syn[step-i])
		}

		if d == 0 {
			shift++
			continue
		}

		coef := f.div(d, prevDiscrepancy)
		saved := append([]int(nil), locator...)

		for i := 0; i+shift < size; i++ {
			locator[i+shift] ^= f.mul(coef, prev[i])
		}

		if 2*l <= step {
			l = step + 1 - l
			prev = saved
			prevDiscrepancy = d
			shift = 1
		} else {
			shift++
		}
	}

	return locator, l
}

// chienSearch returns the degrees d in [0, n) where alpha^-d is a root of
// the locator.
func (c *Code) chienSearch(locator []int, l int) []int {
	f := c.f
	n := c.CodewordLen()

	var positions []int
	for d := 0; d < n; d++ {
		v := 0
		for i := 0; i <= l; i++ {
			v ^= f.mul(locator[i], f.alphaPow(-d*i))
		}

		if v == 0 {
			positions = append(positions, d)
		}
	}

	return positions
}

func (c *Code) lengthMustBe(b bitstring.BitString, n int) error {
	if len(b) != n {
		return fmt.Errorf("bch(%d,%d): expected %d bits, got %d: %w",
			c.k, c.t, n, len(b), ecc.ErrLengthMismatch)
	}

	return b.Validate()
}

// NewCodec wraps a BCH code for k-bit responses and t errors as an ecc.Codec.
func NewCodec(k, t int) (*ecc.MultiBit, error) {
	c, err := New(k, t)
	if err != nil {
		return nil, err
	}

	return ecc.NewMultiBit(fmt.Sprintf("bch(%d,t=%d)", k, t), c), nil
}

var _ ecc.BlockCodec = (*Code)(nil)

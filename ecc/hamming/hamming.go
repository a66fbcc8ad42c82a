// Package hamming implements single-error-correcting Hamming codes over GF(2),
// with an optional overall parity bit for double-error detection.
//
// Codeword positions follow the classic 1-indexed layout: parity bits sit at
// powers of two, data bits fill the remaining positions in order, and a
// non-zero syndrome is the position of a single flipped bit. In the extended
// variant the overall parity bit is stored in front of position 1.
package hamming

import (
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/ecc"
)

// Code is a Hamming code for a fixed number of data bits.
type Code struct {
	k        int
	r        int
	extended bool
}

// New creates the minimal Hamming code for k data bits: the smallest r with
// 2^r >= k + r + 1.
func New(k int) (*Code, error) {
	if k < 1 {
		return nil, fmt.Errorf("hamming code needs at least one data bit, got %d", k)
	}

	return &Code{k: k, r: RedundantBits(k)}, nil
}

// NewExtended creates a Hamming code with an extra overall parity bit, which
// detects double errors.
func NewExtended(k int) (*Code, error) {
	c, err := New(k)
	if err != nil {
		return nil, err
	}

	c.extended = true

	return c, nil
}

// RedundantBits returns the smallest r with 2^r >= k + r + 1.
func RedundantBits(k int) int {
	r := 0
	for 1<<r < k+r+1 {
		r++
	}

	return r
}

// DataLen returns k.
func (c *Code) DataLen() int {
	return c.k
}

// ParityLen returns the number of parity bits, including the overall parity
// bit of the extended variant.
func (c *Code) ParityLen() int {
	if c.extended {
		return c.r + 1
	}

	return c.r
}

// CodewordLen returns n = k + ParityLen().
func (c *Code) CodewordLen() int {
	return c.k + c.ParityLen()
}

// Extended reports whether the code carries an overall parity bit.
func (c *Code) Extended() bool {
	return c.extended
}

// lastPos is the highest 1-indexed Hamming position.
func (c *Code) lastPos() int {
	return c.k + c.r
}

// index maps a 1-indexed Hamming position to a codeword index.
func (c *Code) index(pos int) int {
	if c.extended {
		return pos
	}

	return pos - 1
}

func isPowerOfTwo(p int) bool {
	return p&(p-1) == 0
}

// Encode places data in the non-power-of-two positions and fills every parity
// position 2^i with the XOR of the positions that have bit i set.
func (c *Code) Encode(data bitstring.BitString) (bitstring.BitString, error) {
	if err := c.lengthMustBe(data, c.k); err != nil {
		return nil, err
	}

	cw := make(bitstring.BitString, c.CodewordLen())
	c.placeData(cw, data)
	c.fillParity(cw)

	return cw, nil
}

// Decode corrects up to one error in received and returns the data bits and
// the number of corrected errors. Errors the code can detect but not correct
// are returned as ecc.ErrDoubleError or ecc.ErrUncorrectable.
func (c *Code) Decode(received bitstring.BitString) (bitstring.BitString, int, error) {
	if err := c.lengthMustBe(received, c.CodewordLen()); err != nil {
		return nil, 0, err
	}

	cw := received.Clone()
	s := c.syndrome(cw)
	corrected := 0

	if c.extended {
		overallOdd := cw.OnesCount()%2 == 1

		switch {
		case s == 0 && !overallOdd:
		case s == 0 && overallOdd:
			cw.Flip(0)
			corrected = 1
		case !overallOdd:
			return nil, 0, fmt.Errorf("syndrome %d with even parity: %w",
				s, ecc.ErrDoubleError)
		default:
			if s > c.lastPos() {
				return nil, 0, fmt.Errorf("syndrome %d beyond position %d: %w",
					s, c.lastPos(), ecc.ErrUncorrectable)
			}

			cw.Flip(c.index(s))
			corrected = 1
		}
	} else if s != 0 {
		if s > c.lastPos() {
			return nil, 0, fmt.Errorf("syndrome %d beyond position %d: %w",
				s, c.lastPos(), ecc.ErrUncorrectable)
		}

		cw.Flip(c.index(s))
		corrected = 1
	}

	return c.extractData(cw), corrected, nil
}

// Syndrome returns the XOR of the positions of all set bits. It is zero for
// valid codewords.
func (c *Code) Syndrome(received bitstring.BitString) (int, error) {
	if err := c.lengthMustBe(received, c.CodewordLen()); err != nil {
		return 0, err
	}

	return c.syndrome(received), nil
}

// Parity extracts the parity bits of a codeword, overall parity first, then
// positions 1, 2, 4, ...
func (c *Code) Parity(cw bitstring.BitString) (bitstring.BitString, error) {
	if err := c.lengthMustBe(cw, c.CodewordLen()); err != nil {
		return nil, err
	}

	out := make(bitstring.BitString, 0, c.ParityLen())
	if c.extended {
		out = append(out, cw[0])
	}

	for i := 0; i < c.r; i++ {
		out = append(out, cw[c.index(1<<i)])
	}

	return out, nil
}

// Assemble rebuilds a codeword from data bits and parity bits in the order
// returned by Parity.
func (c *Code) Assemble(data, parity bitstring.BitString) (bitstring.BitString, error) {
	if err := c.lengthMustBe(data, c.k); err != nil {
		return nil, err
	}

	if err := c.lengthMustBe(parity, c.ParityLen()); err != nil {
		return nil, err
	}

	cw := make(bitstring.BitString, c.CodewordLen())
	c.placeData(cw, data)

	rest := parity
	if c.extended {
		cw[0] = parity[0]
		rest = parity[1:]
	}

	for i, v := range rest {
		cw[c.index(1<<i)] = v
	}

	return cw, nil
}

func (c *Code) placeData(cw, data bitstring.BitString) {
	j := 0
	for pos := 1; pos <= c.lastPos(); pos++ {
		if isPowerOfTwo(pos) {
			continue
		}

		cw[c.index(pos)] = data[j]
		j++
	}
}

func (c *Code) extractData(cw bitstring.BitString) bitstring.BitString {
	data := make(bitstring.BitString, 0, c.k)
	for pos := 1; pos <= c.lastPos(); pos++ {
		if !isPowerOfTwo(pos) {
			data = append(data, cw[c.index(pos)])
		}
	}

	return data
}

func (c *Code) fillParity(cw bitstring.BitString) {
	for i := 0; i < c.r; i++ {
		p := 1 << i

		var v uint8
		for pos := 1; pos <= c.lastPos(); pos++ {
			if pos&p != 0 && pos != p {
				v ^= cw[c.index(pos)]
			}
		}

		cw[c.index(p)] = v
	}

	if c.extended {
		cw[0] = 0
		cw[0] = uint8(cw.OnesCount() % 2)
	}
}

func (c *Code) syndrome(cw bitstring.BitString) int {
	s := 0
	for pos := 1; pos <= c.lastPos(); pos++ {
		if cw[c.index(pos)] == 1 {
			s ^= pos
		}
	}

	return s
}

func (c *Code) lengthMustBe(b bitstring.BitString, n int) error {
	if len(b) != n {
		return fmt.Errorf("hamming(%d): expected %d bits, got %d: %w",
			c.k, n, len(b), ecc.ErrLengthMismatch)
	}

	return b.Validate()
}

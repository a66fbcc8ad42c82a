// Package bitstring provides the bit-string type shared by the SRAM model, the
// error-correcting codes and the PUF controller.
package bitstring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBit is returned when a bit-string holds a value other than 0 or 1.
var ErrInvalidBit = errors.New("bit value must be 0 or 1")

// BitString is an ordered sequence of bits. Each element holds 0 or 1.
type BitString []uint8

// New creates an all-zero BitString of the given length.
func New(n int) BitString {
	return make(BitString, n)
}

// FromString parses a string of '0' and '1' characters.
func FromString(s string) (BitString, error) {
	b := make(BitString, len(s))
	for i, c := range s {
		switch c {
		case '0':
			b[i] = 0
		case '1':
			b[i] = 1
		default:
			return nil, fmt.Errorf("position %d: %w", i, ErrInvalidBit)
		}
	}

	return b, nil
}

// MustFromString is like FromString but panics on malformed input.
func MustFromString(s string) BitString {
	b, err := FromString(s)
	if err != nil {
		panic(err)
	}

	return b
}

// Validate checks that every element is 0 or 1.
func (b BitString) Validate() error {
	for i, v := range b {
		if v > 1 {
			return fmt.Errorf("position %d holds %d: %w", i, v, ErrInvalidBit)
		}
	}

	return nil
}

// Clone returns a copy that does not share storage with b.
func (b BitString) Clone() BitString {
	if b == nil {
		return nil
	}

	c := make(BitString, len(b))
	copy(c, b)

	return c
}

// Equal reports whether a and b have the same length and content.
func (b BitString) Equal(other BitString) bool {
	if len(b) != len(other) {
		return false
	}

	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}

	return true
}

// Flip inverts the bit at index i in place.
func (b BitString) Flip(i int) {
	b[i] ^= 1
}

// OnesCount returns the number of bits set to 1.
func (b BitString) OnesCount() int {
	n := 0
	for _, v := range b {
		n += int(v)
	}

	return n
}

// String renders the bits as a string of '0' and '1'.
func (b BitString) String() string {
	var sb strings.Builder
	sb.Grow(len(b))

	for _, v := range b {
		sb.WriteByte('0' + v)
	}

	return sb.String()
}

// Distance returns the Hamming distance between a and b. Both must have the
// same length.
func Distance(a, b BitString) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf(
			"cannot compare bit-strings of length %d and %d", len(a), len(b))
	}

	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}

	return d, nil
}

// ErrorRate returns the fraction of mismatching bits between a and b.
func ErrorRate(a, b BitString) (float64, error) {
	d, err := Distance(a, b)
	if err != nil {
		return 0, err
	}

	if len(a) == 0 {
		return 0, nil
	}

	return float64(d) / float64(len(a)), nil
}

// Pack packs the bits MSB-first into bytes. The last byte is zero-padded.
func (b BitString) Pack() []byte {
	out := make([]byte, (len(b)+7)/8)
	for i, v := range b {
		if v != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}

	return out
}

// Unpack expands the first n bits of data, MSB-first.
func Unpack(data []byte, n int) (BitString, error) {
	if n < 0 || n > len(data)*8 {
		return nil, fmt.Errorf(
			"cannot unpack %d bits from %d bytes", n, len(data))
	}

	b := make(BitString, n)
	for i := range b {
		b[i] = (data[i/8] >> (7 - i%8)) & 1
	}

	return b, nil
}

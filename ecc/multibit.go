package ecc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
)

// BlockCodec is the contract of an external multi-bit code such as BCH. Its
// field arithmetic is opaque to this package.
type BlockCodec interface {
	// DataLen is the number of data bits k per block.
	DataLen() int

	// Capability is the guaranteed number of correctable errors t.
	Capability() int

	// Encode returns the parity bits for data.
	Encode(data bitstring.BitString) (bitstring.BitString, error)

	// Decode corrects data against parity. It returns an error wrapping
	// ErrTooManyErrors when more than t errors are present.
	Decode(data, parity bitstring.BitString) (bitstring.BitString, int, error)
}

// MultiBit adapts a BlockCodec to the Codec interface. The golden response
// is one block; the helper data is the block's parity.
type MultiBit struct {
	name  string
	codec BlockCodec
}

// NewMultiBit wraps codec under the given name.
func NewMultiBit(name string, codec BlockCodec) *MultiBit {
	return &MultiBit{name: name, codec: codec}
}

// Name implements Codec.
func (m *MultiBit) Name() string {
	return m.name
}

// DataLen implements Codec.
func (m *MultiBit) DataLen() int {
	return m.codec.DataLen()
}

// Capability returns the number of errors the wrapped code corrects.
func (m *MultiBit) Capability() int {
	return m.codec.Capability()
}

// GenerateHelperData implements Codec.
func (m *MultiBit) GenerateHelperData(
	golden bitstring.BitString,
) (bitstring.BitString, error) {
	if err := LengthMustMatch(m, len(golden)); err != nil {
		return nil, err
	}

	parity, err := m.codec.Encode(golden)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", m.name, err)
	}

	return parity, nil
}

// Correct implements Codec.
func (m *MultiBit) Correct(noisy, helper bitstring.BitString) (Result, error) {
	if err := LengthMustMatch(m, len(noisy)); err != nil {
		return Result{}, err
	}

	data, n, err := m.codec.Decode(noisy, helper)
	switch {
	case errors.Is(err, ErrTooManyErrors):
		return Failed(err), nil
	case err != nil:
		return Result{}, fmt.Errorf("%s: decode: %w", m.name, err)
	case n > m.codec.Capability():
		return Failed(fmt.Errorf("%s reported %d corrections with t=%d: %w",
			m.name, n, m.codec.Capability(), ErrTooManyErrors)), nil
	case len(data) != m.codec.DataLen():
		return Result{}, fmt.Errorf("%s returned %d bits: %w",
			m.name, len(data), ErrLengthMismatch)
	}

	return Succeeded(data, n), nil
}

var _ Codec = (*MultiBit)(nil)

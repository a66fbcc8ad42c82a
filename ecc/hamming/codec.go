package hamming

import (
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/ecc"
)

// Codec uses a Hamming code in the syndrome construction: the helper data is
// the parity of the golden response's codeword, and correction decodes the
// codeword formed by the noisy response and the stored parity.
type Codec struct {
	code *Code
}

// NewCodec creates a Codec for k-bit responses.
func NewCodec(k int, extended bool) (*Codec, error) {
	var (
		code *Code
		err  error
	)

	if extended {
		code, err = NewExtended(k)
	} else {
		code, err = New(k)
	}

	if err != nil {
		return nil, err
	}

	return &Codec{code: code}, nil
}

// Code returns the underlying Hamming code.
func (c *Codec) Code() *Code {
	return c.code
}

// Name implements ecc.Codec.
func (c *Codec) Name() string {
	if c.code.extended {
		return fmt.Sprintf("hamming-ext(%d)", c.code.k)
	}

	return fmt.Sprintf("hamming(%d)", c.code.k)
}

// DataLen implements ecc.Codec.
func (c *Codec) DataLen() int {
	return c.code.k
}

// GenerateHelperData implements ecc.Codec.
func (c *Codec) GenerateHelperData(
	golden bitstring.BitString,
) (bitstring.BitString, error) {
	cw, err := c.code.Encode(golden)
	if err != nil {
		return nil, err
	}

	return c.code.Parity(cw)
}

// Correct implements ecc.Codec.
func (c *Codec) Correct(noisy, helper bitstring.BitString) (ecc.Result, error) {
	cw, err := c.code.Assemble(noisy, helper)
	if err != nil {
		return ecc.Result{}, err
	}

	data, n, err := c.code.Decode(cw)
	if err != nil {
		return ecc.Failed(err), nil
	}

	return ecc.Succeeded(data, n), nil
}

var _ ecc.Codec = (*Codec)(nil)

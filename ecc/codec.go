// Package ecc defines how the PUF controller talks to error-correcting codes.
//
// A Codec is built for one fixed data length. At enrollment it turns the
// golden response into public helper data. At query time it uses the helper
// data to pull a noisy response back to the golden response, or reports that
// it cannot.
package ecc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pufsim/bitstring"
)

var (
	// ErrLengthMismatch is returned when data does not match the length a
	// codec was built for.
	ErrLengthMismatch = errors.New("data length does not match codec")

	// ErrUncorrectable means the decoder found errors it cannot locate.
	ErrUncorrectable = errors.New("uncorrectable error pattern")

	// ErrDoubleError means an extended Hamming decoder detected two errors.
	ErrDoubleError = errors.New("double error detected")

	// ErrTooManyErrors means a multi-bit decoder saw more than t errors.
	ErrTooManyErrors = errors.New("more errors than the code can correct")
)

// Outcome tags the result of a correction attempt.
type Outcome int

// Possible outcomes.
const (
	// OutcomeClean means no error was found.
	OutcomeClean Outcome = iota

	// OutcomeCorrected means errors were found and corrected.
	OutcomeCorrected

	// OutcomeUncorrectable means errors were detected but could not be
	// corrected. The result carries no data.
	OutcomeUncorrectable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeCorrected:
		return "corrected"
	case OutcomeUncorrectable:
		return "uncorrectable"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the tagged outcome of Codec.Correct.
type Result struct {
	// Data is the corrected response. It is nil when Outcome is
	// OutcomeUncorrectable.
	Data bitstring.BitString

	Outcome Outcome

	// Corrected is the number of bit errors the decoder fixed.
	Corrected int

	// Reason explains an uncorrectable outcome, for example ErrDoubleError.
	Reason error
}

// OK reports whether Data holds a usable response.
func (r Result) OK() bool {
	return r.Outcome != OutcomeUncorrectable
}

// Succeeded builds a result for a successful decode.
func Succeeded(data bitstring.BitString, corrected int) Result {
	o := OutcomeClean
	if corrected > 0 {
		o = OutcomeCorrected
	}

	return Result{Data: data, Outcome: o, Corrected: corrected}
}

// Failed builds an uncorrectable result.
func Failed(reason error) Result {
	return Result{Outcome: OutcomeUncorrectable, Reason: reason}
}

// Codec is a helper-data error-correction scheme for a fixed data length.
//
// Decode failures are reported as an uncorrectable Result. The error return
// is reserved for misuse, such as inputs of the wrong length.
type Codec interface {
	// Name identifies the code, for example "hamming(1013)".
	Name() string

	// DataLen is the response length k the codec was built for.
	DataLen() int

	// GenerateHelperData derives the public helper data from the golden
	// response.
	GenerateHelperData(golden bitstring.BitString) (bitstring.BitString, error)

	// Correct reconstructs the golden response from a noisy one.
	Correct(noisy, helper bitstring.BitString) (Result, error)
}

// LengthMustMatch returns an ErrLengthMismatch error if n differs from the
// codec's data length.
func LengthMustMatch(c Codec, n int) error {
	if c.DataLen() != n {
		return fmt.Errorf("%s expects %d bits, got %d: %w",
			c.Name(), c.DataLen(), n, ErrLengthMismatch)
	}

	return nil
}

package bch

import "fmt"

// Limits describes the largest code a field degree m supports for t errors.
type Limits struct {
	M int
	T int

	// N is the full code length 2^m - 1.
	N int

	// ParityBits is deg(g).
	ParityBits int

	// MaxDataBits is N - ParityBits.
	MaxDataBits int

	// MaxDataBytes is MaxDataBits rounded down to whole bytes.
	MaxDataBytes int
}

func (l Limits) String() string {
	return fmt.Sprintf("m=%d t=%d n=%d parity=%d max_k=%d bits (%d bytes)",
		l.M, l.T, l.N, l.ParityBits, l.MaxDataBits, l.MaxDataBytes)
}

// LimitsFor computes the limits of GF(2^m) for t errors.
func LimitsFor(m, t int) (Limits, error) {
	if t < 1 {
		return Limits{}, fmt.Errorf("bch: t must be positive, got %d", t)
	}

	f, err := newField(m)
	if err != nil {
		return Limits{}, fmt.Errorf("bch: %w", err)
	}

	if 2*t >= f.n {
		return Limits{}, fmt.Errorf("bch: t=%d too large for GF(2^%d)", t, m)
	}

	r := len(f.generator(t)) - 1
	if r >= f.n {
		return Limits{}, fmt.Errorf("bch: t=%d leaves no data bits in GF(2^%d)",
			t, m)
	}

	maxK := f.n - r

	return Limits{
		M:            m,
		T:            t,
		N:            f.n,
		ParityBits:   r,
		MaxDataBits:  maxK,
		MaxDataBytes: maxK / 8,
	}, nil
}

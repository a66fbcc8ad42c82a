package bch

import "fmt"

// primitivePolynomials lists one primitive polynomial per field degree m.
var primitivePolynomials = map[int]int{
	3:  0xB,
	4:  0x13,
	5:  0x25,
	6:  0x43,
	7:  0x83,
	8:  0x11D,
	9:  0x211,
	10: 0x409,
	11: 0x805,
	12: 0x1053,
	13: 0x201B,
	14: 0x402B,
	15: 0x8003,
	16: 0x1100B,
}

// Supported field degrees.
const (
	MinM = 3
	MaxM = 16
)

// field is GF(2^m) with log/antilog tables over the primitive element alpha.
type field struct {
	m   int
	n   int
	exp []int
	log []int
}

func newField(m int) (*field, error) {
	poly, ok := primitivePolynomials[m]
	if !ok {
		return nil, fmt.Errorf("no GF(2^%d) support, m must be in [%d, %d]",
			m, MinM, MaxM)
	}

	n := 1<<m - 1
	f := &field{
		m:   m,
		n:   n,
		exp: make([]int, 2*n),
		log: make([]int, n+1),
	}

	x := 1
	for i := 0; i < n; i++ {
		if i > 0 && x == 1 {
			return nil, fmt.Errorf("polynomial %#x is not primitive", poly)
		}

		f.exp[i] = x
		f.log[x] = i

		x <<= 1
		if x&(1<<m) != 0 {
			x ^= poly
		}
	}

	for i := n; i < 2*n; i++ {
		f.exp[i] = f.exp[i-n]
	}

	return f, nil
}

func (f *field) mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}

	return f.exp[f.log[a]+f.log[b]]
}

func (f *field) div(a, b int) int {
	if b == 0 {
		panic("division by zero in GF(2^m)")
	}

	if a == 0 {
		return 0
	}

	return f.exp[f.log[a]-f.log[b]+f.n]
}

// alphaPow returns alpha^e for any integer e.
func (f *field) alphaPow(e int) int {
	e %= f.n
	if e < 0 {
		e += f.n
	}

	return f.exp[e]
}

// generator multiplies the minimal polynomials of alpha^1 .. alpha^(2t), each
// cyclotomic coset once. The result has binary coefficients, lowest degree
// first.
func (f *field) generator(t int) []uint8 {
	seen := make([]bool, f.n)
	g := []int{1}

	for i := 1; i <= 2*t; i++ {
		e := i % f.n
		if seen[e] {
			continue
		}

		for c := e; !seen[c]; c = (2 * c) % f.n {
			seen[c] = true
			g = f.mulByRoot(g, f.exp[c])
		}
	}

	out := make([]uint8, len(g))
	for i, v := range g {
		if v > 1 {
			panic(fmt.Sprintf("generator coefficient %d is not binary", v))
		}

		out[i] = uint8(v)
	}

	return out
}

// mulByRoot returns p(x) * (x + a).
func (f *field) mulByRoot(p []int, a int) []int {
	out := make([]int, len(p)+1)
	for i, c := range p {
		out[i+1] ^= c
		out[i] ^= f.mul(c, a)
	}

	return out
}

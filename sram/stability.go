package sram

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidStability is returned for stability distributions or values that
// cannot describe a cell.
var ErrInvalidStability = errors.New("invalid cell stability")

// Stability kinds.
const (
	StabilityBeta  = "beta"
	StabilityFixed = "fixed"
)

// Stability describes how strongly fabricated cells hold their preferred
// value. A stability of 1 is an ideal cell. A stability of 0 settles to
// either value with equal chance.
//
// The zero value is the default Beta(8, 2) distribution.
type Stability struct {
	Kind  string  `yaml:"kind"`
	Alpha float64 `yaml:"alpha,omitempty"`
	Beta  float64 `yaml:"beta,omitempty"`
	Value float64 `yaml:"value,omitempty"`
}

// DefaultStability draws from Beta(8, 2), which has a mean of 0.8.
func DefaultStability() Stability {
	return BetaStability(8, 2)
}

// BetaStability draws each cell's stability from Beta(alpha, beta).
func BetaStability(alpha, beta float64) Stability {
	return Stability{Kind: StabilityBeta, Alpha: alpha, Beta: beta}
}

// FixedStability gives every cell the same stability.
func FixedStability(v float64) Stability {
	return Stability{Kind: StabilityFixed, Value: v}
}

// Resolved returns the default distribution for the zero value and s
// otherwise, without the parameters its kind does not use.
func (s Stability) Resolved() Stability {
	switch s.Kind {
	case "":
		if s == (Stability{}) {
			return DefaultStability()
		}
	case StabilityBeta:
		return BetaStability(s.Alpha, s.Beta)
	case StabilityFixed:
		return FixedStability(s.Value)
	}

	return s
}

// UnmarshalYAML accepts the String form as a scalar, for example
// "beta(8,2)" or "fixed(1)", as well as a mapping.
func (s *Stability) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		parsed, err := ParseStability(value.Value)
		if err != nil {
			return err
		}

		*s = parsed

		return nil
	}

	type plain Stability

	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}

	*s = Stability(p)

	return nil
}

// Validate checks the distribution parameters.
func (s Stability) Validate() error {
	s = s.Resolved()

	switch s.Kind {
	case StabilityBeta:
		if !(s.Alpha > 0) || !(s.Beta > 0) ||
			math.IsInf(s.Alpha, 0) || math.IsInf(s.Beta, 0) {
			return fmt.Errorf("beta(%v, %v): %w", s.Alpha, s.Beta,
				ErrInvalidStability)
		}
	case StabilityFixed:
		if math.IsNaN(s.Value) || s.Value < 0 || s.Value > 1 {
			return fmt.Errorf("fixed %v: %w", s.Value, ErrInvalidStability)
		}
	default:
		return fmt.Errorf("kind %q: %w", s.Kind, ErrInvalidStability)
	}

	return nil
}

// Mean returns the expected stability of a fabricated cell.
func (s Stability) Mean() float64 {
	s = s.Resolved()
	if s.Kind == StabilityFixed {
		return s.Value
	}

	return s.Alpha / (s.Alpha + s.Beta)
}

func (s Stability) String() string {
	s = s.Resolved()

	f := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	if s.Kind == StabilityFixed {
		return "fixed(" + f(s.Value) + ")"
	}

	return s.Kind + "(" + f(s.Alpha) + "," + f(s.Beta) + ")"
}

// ParseStability reads the String form back. "beta" alone means the default
// distribution and a bare number means a fixed stability.
func ParseStability(text string) (Stability, error) {
	text = strings.ToLower(strings.TrimSpace(text))

	if text == "" || text == StabilityBeta {
		return DefaultStability(), nil
	}

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		s := FixedStability(v)
		return s, s.Validate()
	}

	kind, rest, ok := strings.Cut(text, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return Stability{}, fmt.Errorf("%q: %w", text, ErrInvalidStability)
	}

	args := strings.Split(strings.TrimSuffix(rest, ")"), ",")
	nums := make([]float64, len(args))

	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return Stability{}, fmt.Errorf("%q: %w", text, ErrInvalidStability)
		}

		nums[i] = v
	}

	var s Stability

	switch {
	case kind == StabilityBeta && len(nums) == 2:
		s = BetaStability(nums[0], nums[1])
	case kind == StabilityFixed && len(nums) == 1:
		s = FixedStability(nums[0])
	default:
		return Stability{}, fmt.Errorf("%q: %w", text, ErrInvalidStability)
	}

	return s, s.Validate()
}

// sampler returns a function that draws one stability per call.
func (s Stability) sampler(rng *rand.Rand) func() float64 {
	s = s.Resolved()

	if s.Kind == StabilityFixed {
		v := s.Value
		return func() float64 { return v }
	}

	dist := distuv.Beta{Alpha: s.Alpha, Beta: s.Beta, Src: rng}

	return dist.Rand
}

// Package puf orchestrates an SRAM PUF: it enrolls a golden response from an
// array, stores the public helper data, and reconstructs the response from
// noisy power-ups on every query.
package puf

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/burnin"
	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/hooking"
	"github.com/sarchlab/pufsim/sram"
)

// State is the lifecycle state of a controller.
type State int

// A controller moves from StateUninitialized to StateEnrolled exactly once.
const (
	StateUninitialized State = iota
	StateEnrolled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEnrolled:
		return "enrolled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EnrollSpec holds the parameters of enrollment.
type EnrollSpec struct {
	// PreTestRounds is the number of burn-in power-ups. Zero disables
	// masking.
	PreTestRounds int `yaml:"pre_test_rounds"`

	// Stress is the condition of the burn-in power-ups.
	Stress sram.Conditions `yaml:"stress"`

	// Nominal is the condition under which the golden response is captured.
	Nominal sram.Conditions `yaml:"nominal"`
}

// DefaultEnrollSpec enrolls at noise-free nominal conditions without
// masking.
func DefaultEnrollSpec() EnrollSpec {
	return EnrollSpec{
		Stress:  sram.Nominal(0),
		Nominal: sram.Nominal(0),
	}
}

// Response is the result of one query.
type Response struct {
	// Bits is the reconstructed response. It is nil when decoding failed.
	Bits bitstring.BitString

	// Decoded reports whether a codec processed the response. Without a
	// codec, Bits is the masked raw response.
	Decoded bool

	Outcome ecc.Outcome

	CorrectedErrors int

	// Reason explains an uncorrectable outcome.
	Reason error
}

// OK reports whether Bits holds a usable response.
func (r Response) OK() bool {
	return r.Outcome != ecc.OutcomeUncorrectable
}

// Query records one power-up and its reconstruction. It is the item of
// hooking.HookPosQuery.
type Query struct {
	Conditions      sram.Conditions
	FlipProbability float64

	// Raw is the masked response before correction.
	Raw bitstring.BitString

	// RawErrors is the number of bits in Raw that differ from the golden
	// response.
	RawErrors int

	Response Response
}

type codecSource struct {
	codec   ecc.Codec
	factory CodecFactory
}

func (s codecSource) configured() bool {
	return s.codec != nil || s.factory != nil
}

func (s codecSource) resolve(k int) (ecc.Codec, error) {
	if s.factory == nil {
		return s.codec, nil
	}

	c, err := s.factory(k)
	if err != nil {
		return nil, fmt.Errorf("building codec for k=%d: %w", k, err)
	}

	return c, nil
}

// Controller owns an SRAM array, its stability mask, the golden response, and
// the codec that reconstructs it.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	*hooking.HookableBase

	id   string
	name string
	seed uint64

	array        *sram.Array
	flipModel    sram.FlipModel
	agingProfile sram.AgingProfile
	engine       burnin.Engine
	codecSource  codecSource

	state    State
	codec    ecc.Codec
	mask     sram.Mask
	golden   bitstring.BitString
	helper   bitstring.BitString
	ageHours       float64
	effectiveHours float64
}

// ID returns the unique ID of the controller.
func (c *Controller) ID() string {
	return c.id
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Seed returns the seed of the array's random source.
func (c *Controller) Seed() uint64 {
	return c.seed
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Array returns the underlying array.
func (c *Controller) Array() *sram.Array {
	return c.array
}

// Codec returns the codec in use, or nil. With a codec factory, the codec is
// only known after enrollment.
func (c *Controller) Codec() ecc.Codec {
	if c.codec != nil {
		return c.codec
	}

	return c.codecSource.codec
}

// AgeHours returns the total simulated operating hours.
func (c *Controller) AgeHours() float64 {
	return c.ageHours
}

// EffectiveAgeHours returns the simulated operating hours converted to
// nominal temperature.
func (c *Controller) EffectiveAgeHours() float64 {
	return c.effectiveHours
}

// AgingProfile returns how operating hours age the array.
func (c *Controller) AgingProfile() sram.AgingProfile {
	return c.agingProfile
}

// Enroll runs burn-in, captures the golden response under nominal conditions,
// and derives helper data. It can only succeed once. On failure the
// controller stays uninitialized.
func (c *Controller) Enroll(spec EnrollSpec) error {
	if c.state != StateUninitialized {
		return ErrAlreadyEnrolled
	}

	if err := enrollSpecMustBeValid(spec); err != nil {
		return err
	}

	stressP := c.flipModel.FlipProbability(spec.Stress)

	mask, err := c.engine.Run(c.array, spec.PreTestRounds, stressP)
	if err != nil {
		return configError("pre-test rounds", err)
	}

	if mask.CountStable() == 0 {
		log.Printf("%s: burn-in masked every cell", c.name)
		return configErrorf("stress condition",
			"no stable cells left after %d rounds at p=%.4g",
			spec.PreTestRounds, stressP)
	}

	full, err := c.array.PowerUp(c.flipModel.FlipProbability(spec.Nominal))
	if err != nil {
		return configError("nominal condition", err)
	}

	golden, err := mask.Project(full)
	if err != nil {
		return configError("mask", err)
	}

	codec, helper, err := c.prepareCodec(golden)
	if err != nil {
		return err
	}

	c.mask = mask
	c.golden = golden
	c.codec = codec
	c.helper = helper
	c.state = StateEnrolled

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosEnrolled,
		Item:   golden.Clone(),
		Detail: spec,
	})

	return nil
}

func enrollSpecMustBeValid(spec EnrollSpec) error {
	if spec.PreTestRounds < 0 {
		return configError("pre-test rounds", fmt.Errorf("%d: %w",
			spec.PreTestRounds, burnin.ErrInvalidRounds))
	}

	if err := spec.Stress.Validate(); err != nil {
		return configError("stress condition", err)
	}

	if err := spec.Nominal.Validate(); err != nil {
		return configError("nominal condition", err)
	}

	return nil
}

func (c *Controller) prepareCodec(
	golden bitstring.BitString,
) (ecc.Codec, bitstring.BitString, error) {
	if !c.codecSource.configured() {
		return nil, nil, nil
	}

	codec, err := c.codecSource.resolve(len(golden))
	if err != nil {
		return nil, nil, configError("codec", err)
	}

	if err := ecc.LengthMustMatch(codec, len(golden)); err != nil {
		return nil, nil, configErrorf("codec",
			"%d stable cells after masking: %w", len(golden), err)
	}

	helper, err := codec.GenerateHelperData(golden)
	if err != nil {
		return nil, nil, configError("codec", err)
	}

	return codec, helper, nil
}

// GetResponse powers the array up under the given conditions and returns the
// reconstructed response. A failed decode is reported through the Outcome of
// the response, not as an error.
func (c *Controller) GetResponse(cond sram.Conditions) (Response, error) {
	q, err := c.query(cond, true)
	if err != nil {
		return Response{}, err
	}

	return q.Response, nil
}

// RawResponse returns the masked response of one power-up without
// correction.
func (c *Controller) RawResponse(cond sram.Conditions) (bitstring.BitString, error) {
	q, err := c.query(cond, false)
	if err != nil {
		return nil, err
	}

	return q.Raw, nil
}

func (c *Controller) query(cond sram.Conditions, correct bool) (Query, error) {
	if c.state != StateEnrolled {
		return Query{}, ErrNotEnrolled
	}

	if err := cond.Validate(); err != nil {
		return Query{}, configError("query condition", err)
	}

	p := c.flipModel.FlipProbability(cond)

	full, err := c.array.PowerUp(p)
	if err != nil {
		return Query{}, configError("query condition", err)
	}

	raw, err := c.mask.Project(full)
	if err != nil {
		return Query{}, configError("mask", err)
	}

	rawErrors, err := bitstring.Distance(raw, c.golden)
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Conditions:      cond,
		FlipProbability: p,
		Raw:             raw,
		RawErrors:       rawErrors,
	}

	if correct && c.codec != nil {
		res, err := c.codec.Correct(raw, c.helper)
		if err != nil {
			return Query{}, fmt.Errorf("%s: %w", c.codec.Name(), err)
		}

		q.Response = Response{
			Bits:            res.Data,
			Decoded:         true,
			Outcome:         res.Outcome,
			CorrectedErrors: res.Corrected,
			Reason:          res.Reason,
		}
	} else {
		q.Response = Response{Bits: raw.Clone(), Outcome: ecc.OutcomeClean}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosQuery,
		Item:   q,
	})

	return q, nil
}

// Golden returns a copy of the golden response.
func (c *Controller) Golden() (bitstring.BitString, error) {
	if c.state != StateEnrolled {
		return nil, ErrNotEnrolled
	}

	return c.golden.Clone(), nil
}

// HelperData returns a copy of the helper data. It is nil without a codec.
func (c *Controller) HelperData() (bitstring.BitString, error) {
	if c.state != StateEnrolled {
		return nil, ErrNotEnrolled
	}

	if c.helper == nil {
		return nil, nil
	}

	return c.helper.Clone(), nil
}

// Mask returns the stability mask fixed at enrollment.
func (c *Controller) Mask() (sram.Mask, error) {
	if c.state != StateEnrolled {
		return sram.Mask{}, ErrNotEnrolled
	}

	return sram.NewMask(c.mask.Flags()), nil
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

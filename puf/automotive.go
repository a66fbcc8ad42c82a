package puf

import (
	"github.com/sarchlab/pufsim/sram"
)

// AutomotiveOptions configures an automotive-grade PUF: strict burn-in at
// high temperature and over-voltage, followed by strong BCH correction.
type AutomotiveOptions struct {
	NumCells int
	Seed     uint64

	// T is the number of errors the BCH code corrects.
	T int

	BurnInRounds       int
	BurnInTemperature  float64
	BurnInVoltageRatio float64

	// BaseNoise is the flip probability at nominal conditions.
	BaseNoise float64

	// Stability is the distribution of cell stabilities. The zero value is
	// Beta(8, 2).
	Stability sram.Stability
}

// DefaultAutomotiveOptions follows AEC-Q100 grade 1: 20 burn-in rounds at
// 125 degrees and 120% voltage, with t = 10.
func DefaultAutomotiveOptions() AutomotiveOptions {
	return AutomotiveOptions{
		NumCells:           4096,
		Seed:               1,
		T:                  10,
		BurnInRounds:       20,
		BurnInTemperature:  125,
		BurnInVoltageRatio: 1.2,
		BaseNoise:          0.01,
	}
}

// EnrollSpec returns the enrollment parameters of the options.
func (o AutomotiveOptions) EnrollSpec() EnrollSpec {
	return EnrollSpec{
		PreTestRounds: o.BurnInRounds,
		Stress: sram.Conditions{
			AgingFactor:  o.BaseNoise,
			Temperature:  o.BurnInTemperature,
			VoltageRatio: o.BurnInVoltageRatio,
		},
		Nominal: sram.Nominal(o.BaseNoise),
	}
}

// NewAutomotive builds and enrolls an automotive-grade controller. The BCH
// code is sized to the number of cells that survive burn-in.
func NewAutomotive(opts AutomotiveOptions) (*Controller, error) {
	if opts.T <= 0 {
		return nil, configErrorf("t", "%d, need at least one", opts.T)
	}

	c, err := MakeBuilder().
		WithNumCells(opts.NumCells).
		WithSeed(opts.Seed).
		WithStability(opts.Stability).
		WithCodecFactory(BCHFactory(opts.T)).
		Build()
	if err != nil {
		return nil, err
	}

	if err := c.Enroll(opts.EnrollSpec()); err != nil {
		return nil, err
	}

	return c, nil
}

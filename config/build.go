package config

import (
	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/sweep"
)

// FlipModel returns the configured noise model.
func (c *Config) FlipModel() sram.FlipModel {
	m := c.Array.FlipModel
	if m.Kind == FlipModelExponential {
		return sram.ExponentialFlipModel{
			TemperatureRate: m.TemperatureCoefficient,
			VoltageRate:     m.VoltageCoefficient,
		}
	}

	return sram.LinearFlipModel{
		TemperatureCoefficient: m.TemperatureCoefficient,
		VoltageCoefficient:     m.VoltageCoefficient,
	}
}

// CodecFactory returns the factory of the configured codec, or nil for
// CodecNone. A positive K fixes the data length, so that enrollment fails
// when the stable cell count differs.
func (c CodecConfig) CodecFactory() puf.CodecFactory {
	var f puf.CodecFactory

	switch c.Kind {
	case CodecHamming:
		f = puf.HammingFactory(false)
	case CodecHammingExtended:
		f = puf.HammingFactory(true)
	case CodecBCH:
		f = puf.BCHFactory(c.T)
	default:
		return nil
	}

	if c.K == 0 {
		return f
	}

	return func(int) (ecc.Codec, error) {
		return f(c.K)
	}
}

// Builder returns a controller builder for the configured array and codec.
func (c *Config) Builder() puf.Builder {
	b := puf.MakeBuilder().
		WithSeed(c.Array.Seed).
		WithOnesBias(c.Array.OnesBias).
		WithStability(c.Array.Stability).
		WithFlipModel(c.FlipModel()).
		WithAgingProfile(c.Aging)

	if c.Array.Rows != 0 || c.Array.Cols != 0 {
		b = b.WithShape(c.Array.Rows, c.Array.Cols)
	} else {
		b = b.WithNumCells(c.Array.NumCells)
	}

	if f := c.Codec.CodecFactory(); f != nil {
		b = b.WithCodecFactory(f)
	}

	return b
}

// NewController builds and enrolls a controller.
func (c *Config) NewController() (*puf.Controller, error) {
	ctrl, err := c.Builder().Build()
	if err != nil {
		return nil, err
	}

	if err := ctrl.Enroll(c.Enroll); err != nil {
		return nil, err
	}

	return ctrl, nil
}

// SweepSetup returns the setup of a sweep over the configured devices.
func (c *Config) SweepSetup() sweep.Setup {
	return sweep.Setup{
		NumCells:         c.numCells(),
		Devices:          c.Sweep.Devices,
		BaseSeed:         c.Sweep.BaseSeed,
		Trials:           c.Sweep.Trials,
		Corrected:        c.Sweep.Corrected,
		Stress:           c.Enroll.Stress,
		Codec:            c.Codec.CodecFactory(),
		FlipModel:        c.FlipModel(),
		AgingProfile:     c.Aging,
		AgingTemperature: c.Sweep.AgingTemperature,
	}
}

// SweepPoints returns the points of the configured grid. A grid without
// stabilities sweeps the stability of the array configuration.
func (c *Config) SweepPoints() []sweep.Point {
	g := c.Sweep.Grid
	if len(g.Stabilities) == 0 {
		g.Stabilities = []sram.Stability{c.Array.Stability}
	}

	return g.Points()
}

func (c *Config) numCells() int {
	if c.Array.Rows != 0 || c.Array.Cols != 0 {
		return c.Array.Rows * c.Array.Cols
	}

	return c.Array.NumCells
}

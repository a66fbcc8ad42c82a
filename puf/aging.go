package puf

import (
	"math"

	"github.com/sarchlab/pufsim/hooking"
)

// SimulateAging applies the permanent drift of operating the device for the
// given hours at the given temperature and returns the number of cells whose
// preferred value flipped. It also shifts the stability of every cell
// according to the storage pattern of the aging profile.
func (c *Controller) SimulateAging(hours, temperature float64) (int, error) {
	if hours < 0 || math.IsNaN(hours) {
		return 0, configErrorf("aging hours", "%v must not be negative", hours)
	}

	if math.IsNaN(temperature) {
		return 0, configErrorf("aging temperature", "NaN")
	}

	p := c.agingProfile.DriftProbability(hours, temperature)

	drifted, err := c.array.Age(p)
	if err != nil {
		return 0, configError("aging profile", err)
	}

	c.ageHours += hours
	c.effectiveHours += c.agingProfile.EffectiveHours(hours, temperature)
	c.array.SetStabilityShift(
		c.agingProfile.StabilityShift(c.effectiveHours))

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosAged,
		Item:   drifted,
		Detail: p,
	})

	return drifted, nil
}

// Package burnin classifies SRAM cells as stable or unstable by powering an
// array up repeatedly under stress conditions.
package burnin

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/pufsim/sram"
)

// ErrInvalidRounds is returned for a negative number of burn-in rounds.
var ErrInvalidRounds = errors.New("burn-in rounds must not be negative")

// Engine runs burn-in on arrays.
type Engine struct {
	// Verbose logs the number of masked cells after each run.
	Verbose bool
}

// Run powers the array up rounds times with flip probability stressP and
// marks a cell stable only if it read the same value in every round.
//
// Each cell's stability is folded into stressP by the array's flip model, so
// cells that are unstable even at low stress get masked. Zero rounds disables
// masking and returns an all-stable mask. A single round cannot tell cells
// apart and also marks every cell stable. So does a stressP of 1 on ideal
// cells, which inverts them identically every round.
func (e Engine) Run(array *sram.Array, rounds int, stressP float64) (sram.Mask, error) {
	if rounds < 0 {
		return sram.Mask{}, fmt.Errorf("%d: %w", rounds, ErrInvalidRounds)
	}

	if rounds == 0 {
		return sram.AllStable(array.Len()), nil
	}

	if rounds == 1 {
		log.Printf("burn-in with a single round masks no cells")
	}

	first, err := array.PowerUp(stressP)
	if err != nil {
		return sram.Mask{}, fmt.Errorf("burn-in round 0: %w", err)
	}

	stable := make([]bool, len(first))
	for i := range stable {
		stable[i] = true
	}

	for r := 1; r < rounds; r++ {
		obs, err := array.PowerUp(stressP)
		if err != nil {
			return sram.Mask{}, fmt.Errorf("burn-in round %d: %w", r, err)
		}

		for i := range obs {
			if obs[i] != first[i] {
				stable[i] = false
			}
		}
	}

	mask := sram.NewMask(stable)

	if e.Verbose {
		log.Printf("burn-in: %d rounds at p=%.4g kept %d of %d cells",
			rounds, stressP, mask.CountStable(), mask.Len())
	}

	return mask, nil
}

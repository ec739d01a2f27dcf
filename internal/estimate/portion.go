// Package estimate converts a recognized dish into a personal share and an
// expected excretion mass.
package estimate

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/model"
)

// ErrInvalidDinerCount is returned when fewer than one diner shares a dish.
var ErrInvalidDinerCount = eris.New("diner count must be at least 1")

// ComputeShare returns the mass attributed to one diner. A ratio of 1.0 is
// an even share; the ratio is not clamped.
func ComputeShare(totalMassG float64, dinerCount int, consumptionRatio float64) (float64, error) {
	if dinerCount < 1 {
		return 0, eris.Wrapf(ErrInvalidDinerCount, "estimate: got %d", dinerCount)
	}
	return totalMassG * consumptionRatio / float64(dinerCount), nil
}

// ScaleNutrients converts a per-100g profile to absolute grams for a share.
func ScaleNutrients(profile model.NutrientProfile, personalMassG float64) model.Nutrients {
	f := personalMassG / 100
	return model.Nutrients{
		ProteinG: profile.ProteinG * f,
		FatG:     profile.FatG * f,
		CarbsG:   profile.CarbsG * f,
		FiberG:   profile.FiberG * f,
	}
}

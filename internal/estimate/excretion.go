package estimate

import (
	"math"

	"github.com/sells-group/gutlog/internal/model"
)

// Coefficients weight each macro-nutrient's undigested residue and scale the
// residue by water and bacterial mass.
type Coefficients struct {
	Protein   float64 `yaml:"protein" json:"protein"`
	Fat       float64 `yaml:"fat" json:"fat"`
	Carbs     float64 `yaml:"carbs" json:"carbs"`
	Fiber     float64 `yaml:"fiber" json:"fiber"`
	Water     float64 `yaml:"water_factor" json:"water_factor"`
	Bacterial float64 `yaml:"bacterial_factor" json:"bacterial_factor"`
}

// DefaultCoefficients returns the fallback coefficient set.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Protein:   0.1,
		Fat:       0.1,
		Carbs:     0.2,
		Fiber:     0.9,
		Water:     2.33,
		Bacterial: 1.3,
	}
}

// Excretion predicts excretion mass in grams, rounded to one decimal.
func Excretion(n model.Nutrients, c Coefficients) float64 {
	solid := n.ProteinG*c.Protein + n.FatG*c.Fat + n.CarbsG*c.Carbs + n.FiberG*c.Fiber
	return round1(solid * c.Water * c.Bacterial)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package estimate

import (
	"math"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PartialCoefficients is a coefficient set as read from configuration, where
// any value may be absent.
type PartialCoefficients struct {
	Protein   *float64 `yaml:"protein" mapstructure:"protein"`
	Fat       *float64 `yaml:"fat" mapstructure:"fat"`
	Carbs     *float64 `yaml:"carbs" mapstructure:"carbs"`
	Fiber     *float64 `yaml:"fiber" mapstructure:"fiber"`
	Water     *float64 `yaml:"water_factor" mapstructure:"water_factor"`
	Bacterial *float64 `yaml:"bacterial_factor" mapstructure:"bacterial_factor"`
}

// ResolveCoefficients returns the configured set only when every value is
// present, finite and non-negative. Otherwise the whole default set is used;
// values are never mixed. The second return reports whether defaults were used.
func ResolveCoefficients(p PartialCoefficients) (Coefficients, bool) {
	vals := []*float64{p.Protein, p.Fat, p.Carbs, p.Fiber, p.Water, p.Bacterial}
	for _, v := range vals {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return DefaultCoefficients(), true
		}
	}
	return Coefficients{
		Protein:   *p.Protein,
		Fat:       *p.Fat,
		Carbs:     *p.Carbs,
		Fiber:     *p.Fiber,
		Water:     *p.Water,
		Bacterial: *p.Bacterial,
	}, false
}

// LoadCoefficientsFile reads a YAML coefficient file with a top-level
// "excretion" key.
func LoadCoefficientsFile(path string) (PartialCoefficients, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PartialCoefficients{}, eris.Wrapf(err, "estimate: read coefficients %s", path)
	}

	var wrapper struct {
		Excretion PartialCoefficients `yaml:"excretion"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return PartialCoefficients{}, eris.Wrap(err, "estimate: parse coefficients")
	}
	return wrapper.Excretion, nil
}

// CoefficientsFrom resolves the coefficient set from an optional file and
// the inline config block. A configured file takes precedence; if it cannot
// be read the full default set is used.
func CoefficientsFrom(path string, inline PartialCoefficients) Coefficients {
	src := inline
	if path != "" {
		p, err := LoadCoefficientsFile(path)
		if err != nil {
			zap.L().Warn("excretion coefficients unavailable, using defaults",
				zap.String("path", path),
				zap.Error(err),
			)
			return DefaultCoefficients()
		}
		src = p
	}

	c, fellBack := ResolveCoefficients(src)
	if fellBack {
		zap.L().Info("excretion coefficients incomplete, using defaults")
	}
	return c
}

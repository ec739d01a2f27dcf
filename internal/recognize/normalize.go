// Package recognize turns a food photo into a validated recognition result.
// The vision model is opaque: only its JSON answer is consumed, and that
// answer is treated as untrusted input.
package recognize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/model"
)

var (
	// ErrMalformedResponse means the answer did not contain a JSON object.
	ErrMalformedResponse = eris.New("recognition response is not a JSON object")
	// ErrMissingName means food_name was absent or blank.
	ErrMissingName = eris.New("recognition response has no food name")
	// ErrInvalidMass means the mass field was absent or not a number.
	ErrInvalidMass = eris.New("recognition response has an unparseable mass")
	// ErrNonPositiveMass means the mass parsed but was zero or negative.
	ErrNonPositiveMass = eris.New("recognition response mass must be positive")
)

var massKeys = []string{"total_mass_g", "weight_g", "mass_g"}

var calorieKeys = []string{"calories", "calories_kcal", "kcal"}

// Commas are only accepted as thousands separators.
var quantityRe = regexp.MustCompile(`^([+-]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)\s*(\p{L}+)?$`)

// Normalize validates a decoded recognizer answer and coerces it into a
// FoodRecognitionResult.
func Normalize(raw any) (*model.FoodRecognitionResult, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, eris.Wrapf(ErrMalformedResponse, "got %T", raw)
	}

	name := strings.TrimSpace(coerceString(obj["food_name"]))
	if name == "" {
		return nil, ErrMissingName
	}

	mass, err := massField(obj)
	if err != nil {
		return nil, err
	}

	res := &model.FoodRecognitionResult{
		FoodName:   name,
		TotalMassG: mass,
		Comment:    coerceString(obj["comment"]),
	}
	for _, k := range calorieKeys {
		if v, ok := obj[k]; ok && v != nil {
			if kcal, err := parseQuantity(v); err == nil && kcal > 0 {
				res.CaloriesKcal = kcal
			}
			break
		}
	}
	return res, nil
}

func massField(obj map[string]any) (float64, error) {
	for _, k := range massKeys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		mass, err := parseQuantity(v)
		if err != nil {
			return 0, eris.Wrapf(ErrInvalidMass, "%s=%v", k, v)
		}
		if mass <= 0 {
			return 0, eris.Wrapf(ErrNonPositiveMass, "%s=%v", k, v)
		}
		return mass, nil
	}
	return 0, eris.Wrap(ErrInvalidMass, "mass field missing")
}

// parseQuantity accepts JSON numbers and strings like "350", "350g",
// "350 g", "1,200g" or "1.2 kg". Kilograms are converted to grams.
func parseQuantity(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, err
		}
		f = n
	case string:
		m := quantityRe.FindStringSubmatch(strings.TrimSpace(x))
		if m == nil {
			return 0, fmt.Errorf("not a quantity: %q", x)
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(m[2], "kg") {
			n *= 1000
		}
		f = n
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}

func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// answer, returning the outermost {...} span.
func ExtractJSON(text string) (string, error) {
	raw := strings.TrimSpace(text)
	if strings.HasPrefix(raw, "```") {
		rest := strings.TrimPrefix(raw, "```")
		if i := strings.Index(rest, "\n"); i >= 0 {
			rest = rest[i+1:]
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		raw = strings.TrimSpace(rest)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", eris.Wrap(ErrMalformedResponse, "no object span")
	}
	return raw[start : end+1], nil
}

// ParseResponse extracts, decodes and normalizes a raw model answer.
func ParseResponse(text string) (*model.FoodRecognitionResult, error) {
	js, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		return nil, eris.Wrap(ErrMalformedResponse, err.Error())
	}
	return Normalize(raw)
}

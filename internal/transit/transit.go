// Package transit estimates a user's personal meal-to-elimination latency
// and projects the next elimination.
package transit

import (
	"sort"
	"time"
)

// Options bounds which history contributes to the estimate.
type Options struct {
	WindowDays        int     `yaml:"window_days" mapstructure:"window_days"`
	MaxPlausibleHours float64 `yaml:"max_plausible_hours" mapstructure:"max_plausible_hours"`
	MinSamples        int     `yaml:"min_samples" mapstructure:"min_samples"`
}

// DefaultOptions returns a 3-day window, a 72-hour plausibility bound and a
// minimum of 3 samples.
func DefaultOptions() Options {
	return Options{
		WindowDays:        3,
		MaxPlausibleHours: 72,
		MinSamples:        3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WindowDays <= 0 {
		o.WindowDays = d.WindowDays
	}
	if o.MaxPlausibleHours <= 0 {
		o.MaxPlausibleHours = d.MaxPlausibleHours
	}
	if o.MinSamples <= 0 {
		o.MinSamples = d.MinSamples
	}
	return o
}

// Diagnostics describes the data behind an estimate.
type Diagnostics struct {
	MealCount        int       `json:"meal_count"`
	EliminationCount int       `json:"elimination_count"`
	SampleCount      int       `json:"sample_count"`
	Samples          []float64 `json:"samples,omitempty"`
}

// Result is the outcome of Estimate. MedianHours is nil when the history is
// insufficient.
type Result struct {
	MedianHours *float64    `json:"median_hours"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Defined reports whether a personalized median exists.
func (r Result) Defined() bool {
	return r.MedianHours != nil
}

// Estimate computes the median transit time from events inside
// [now - WindowDays, now]. Each meal is paired with the first elimination
// at or after it that no earlier meal has claimed; pairs longer than
// MaxPlausibleHours are discarded. The result depends on now, so repeated
// calls over unchanged data can differ as events leave the window.
func Estimate(now time.Time, meals, eliminations []time.Time, opts Options) Result {
	opts = opts.withDefaults()
	from := now.Add(-time.Duration(opts.WindowDays) * 24 * time.Hour)

	m := inWindow(meals, from, now)
	e := inWindow(eliminations, from, now)

	res := Result{Diagnostics: Diagnostics{MealCount: len(m), EliminationCount: len(e)}}
	if len(m) == 0 || len(e) == 0 {
		return res
	}

	samples := pairSamples(m, e, opts.MaxPlausibleHours)
	res.Diagnostics.SampleCount = len(samples)
	res.Diagnostics.Samples = samples
	if len(samples) < opts.MinSamples {
		return res
	}

	med := median(samples)
	res.MedianHours = &med
	return res
}

// pairSamples expects both slices sorted ascending.
func pairSamples(meals, elims []time.Time, maxHours float64) []float64 {
	var samples []float64
	next := 0
	for _, meal := range meals {
		for next < len(elims) && elims[next].Before(meal) {
			next++
		}
		if next >= len(elims) {
			break
		}
		elapsed := elims[next].Sub(meal).Hours()
		if elapsed >= 0 && elapsed <= maxHours {
			samples = append(samples, elapsed)
			next++
		}
	}
	return samples
}

func inWindow(ts []time.Time, from, to time.Time) []time.Time {
	out := make([]time.Time, 0, len(ts))
	for _, t := range ts {
		if t.Before(from) || t.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func median(vals []float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Predict projects the next elimination as latestMeal + median. It returns
// false when there is no meal or no personalized median.
func Predict(latestMeal time.Time, hasMeal bool, res Result) (time.Time, bool) {
	if !hasMeal || !res.Defined() {
		return time.Time{}, false
	}
	return latestMeal.Add(time.Duration(*res.MedianHours * float64(time.Hour))), true
}

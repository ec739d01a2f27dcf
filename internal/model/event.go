// Package model defines the meal, elimination and nutrient types shared
// across the tracker.
package model

import "time"

// MealType tags when a meal was eaten.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// Valid reports whether m is empty or one of the known meal types.
func (m MealType) Valid() bool {
	switch m {
	case "", MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// MealEvent records one personal share of a meal. Immutable once appended.
type MealEvent struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	FoodLabel           string    `json:"food_label"`
	PersonalMassG       float64   `json:"personal_mass_g"`
	PredictedExcretionG float64   `json:"predicted_excretion_g"`
	MealType            MealType  `json:"meal_type,omitempty"`
	DinerCount          int       `json:"diner_count,omitempty"`
	ConsumptionRatio    float64   `json:"consumption_ratio,omitempty"`
	CaloriesKcal        float64   `json:"calories_kcal,omitempty"`
}

// EliminationEvent records one elimination. DischargedMassG is stored as
// requested even when it exceeds the tracked stock.
type EliminationEvent struct {
	ID              string     `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	DischargedMassG float64    `json:"discharged_mass_g"`
	PredictedAt     *time.Time `json:"predicted_at,omitempty"`
	ErrorMinutes    *int       `json:"error_minutes,omitempty"`
	Full            bool       `json:"full,omitempty"` // stock reset to zero
}

// PredictionErrorMinutes returns (actual - predicted) in whole minutes.
func PredictionErrorMinutes(actual, predicted time.Time) int {
	return int(actual.Sub(predicted) / time.Minute)
}

// MealTimes returns the timestamps of meals in input order.
func MealTimes(meals []MealEvent) []time.Time {
	out := make([]time.Time, len(meals))
	for i, m := range meals {
		out[i] = m.Timestamp
	}
	return out
}

// EliminationTimes returns the timestamps of eliminations in input order.
func EliminationTimes(elims []EliminationEvent) []time.Time {
	out := make([]time.Time, len(elims))
	for i, e := range elims {
		out[i] = e.Timestamp
	}
	return out
}

func lastTime(ts []time.Time) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, t := range ts {
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}

// LatestMeal returns the most recent meal timestamp.
func LatestMeal(meals []MealEvent) (time.Time, bool) {
	return lastTime(MealTimes(meals))
}

// LatestElimination returns the most recent elimination timestamp.
func LatestElimination(elims []EliminationEvent) (time.Time, bool) {
	return lastTime(EliminationTimes(elims))
}

package model

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestUpgradeUserRecord_Legacy(t *testing.T) {
	raw := json.RawMessage(`{
		"last_poop": "2025-01-01 07:30",
		"meals_since_last_poop": [
			{"date": "2025-01-01 12:10", "type": "점심", "name": "비빔밥 (1/2인분)", "weight": 250, "calories": 300, "people_count": 2},
			{"date": "2025-01-01 19:00", "type": "저녁", "name": "김치찌개", "weight": 400, "calories": 500}
		],
		"total_weight_in_stomach": 650
	}`)

	rec, err := UpgradeUserRecord(raw, sequentialIDs())
	require.NoError(t, err)

	assert.Equal(t, CurrentSchemaVersion, rec.SchemaVersion)
	assert.InDelta(t, 650, rec.StockG, 0.001)

	require.Len(t, rec.Eliminations, 1)
	assert.True(t, rec.Eliminations[0].Full)
	assert.Equal(t, "2025-01-01 07:30", rec.Eliminations[0].Timestamp)

	require.Len(t, rec.Meals, 2)
	assert.Equal(t, MealTypeLunch, rec.Meals[0].MealType)
	assert.Equal(t, 2, rec.Meals[0].DinerCount)
	assert.Equal(t, 1, rec.Meals[1].DinerCount)
	assert.InDelta(t, 400, rec.Meals[1].PredictedExcretionG, 0.001)
	assert.Equal(t, "id-2", rec.Meals[0].ID)
}

func TestUpgradeUserRecord_Current(t *testing.T) {
	raw := json.RawMessage(`{"schema_version":1,"stock_g":12.5,"meals":[{"id":"m1","timestamp":"2025-02-01 08:00","food_label":"rice","personal_mass_g":200,"predicted_excretion_g":30}],"eliminations":[]}`)

	rec, err := UpgradeUserRecord(raw, sequentialIDs())
	require.NoError(t, err)
	assert.InDelta(t, 12.5, rec.StockG, 0.001)
	require.Len(t, rec.Meals, 1)
	assert.Equal(t, "m1", rec.Meals[0].ID)
}

func TestUpgradeUserRecord_UnknownVersion(t *testing.T) {
	_, err := UpgradeUserRecord(json.RawMessage(`{"schema_version":99}`), sequentialIDs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestUpgradeUserRecord_BadLegacyDate(t *testing.T) {
	_, err := UpgradeUserRecord(json.RawMessage(`{"last_poop":"yesterday"}`), sequentialIDs())
	assert.Error(t, err)
}

func TestUserRecord_EventsRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 15, 0, 0, time.Local)
	pred := ts.Add(-45 * time.Minute)
	errMin := 45

	rec := NewUserRecord()
	rec.Meals = append(rec.Meals, NewMealRecord(MealEvent{
		ID: "m1", Timestamp: ts, FoodLabel: "toast", PersonalMassG: 80, PredictedExcretionG: 11.2,
		MealType: MealTypeBreakfast, DinerCount: 1, ConsumptionRatio: 1,
	}))
	rec.Eliminations = append(rec.Eliminations, NewEliminationRecord(EliminationEvent{
		ID: "e1", Timestamp: ts, DischargedMassG: 60, PredictedAt: &pred, ErrorMinutes: &errMin,
	}))

	meals, elims, err := rec.Events()
	require.NoError(t, err)
	require.Len(t, meals, 1)
	require.Len(t, elims, 1)
	assert.True(t, ts.Equal(meals[0].Timestamp))
	assert.Equal(t, MealTypeBreakfast, meals[0].MealType)
	require.NotNil(t, elims[0].PredictedAt)
	assert.True(t, pred.Equal(*elims[0].PredictedAt))
	assert.Equal(t, 45, *elims[0].ErrorMinutes)
}

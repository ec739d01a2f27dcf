package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gutlog/internal/model"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.Local)
}

func intPtr(v int) *int { return &v }

func sampleMeal(id string, ts time.Time, excretion float64) model.MealEvent {
	return model.MealEvent{
		ID:                  id,
		Timestamp:           ts,
		FoodLabel:           "bibimbap",
		PersonalMassG:       250,
		PredictedExcretionG: excretion,
		MealType:            model.MealTypeLunch,
		DinerCount:          2,
		ConsumptionRatio:    1,
		CaloriesKcal:        480,
	}
}

func sampleElimination(id string, ts time.Time, discharged float64) model.EliminationEvent {
	predicted := ts.Add(-30 * time.Minute)
	return model.EliminationEvent{
		ID:              id,
		Timestamp:       ts,
		DischargedMassG: discharged,
		PredictedAt:     &predicted,
		ErrorMinutes:    intPtr(30),
	}
}

func assertSameMeal(t *testing.T, want, got model.MealEvent) {
	t.Helper()
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
	want.Timestamp, got.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func assertSameElimination(t *testing.T, want, got model.EliminationEvent) {
	t.Helper()
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
	if want.PredictedAt == nil {
		assert.Nil(t, got.PredictedAt)
	} else if assert.NotNil(t, got.PredictedAt) {
		assert.True(t, want.PredictedAt.Equal(*got.PredictedAt))
	}
	want.Timestamp, got.Timestamp = time.Time{}, time.Time{}
	want.PredictedAt, got.PredictedAt = nil, nil
	assert.Equal(t, want, got)
}

// storeContract exercises the behavior every backend shares.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	stock, err := s.Stock(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, stock)

	meals, err := s.Meals(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, meals)

	m1 := sampleMeal("m1", at(1, 8, 0), 60)
	m2 := sampleMeal("m2", at(1, 12, 30), 40)
	e1 := sampleElimination("e1", at(2, 7, 15), 70)

	require.NoError(t, s.AppendMeal(ctx, "alice", m1, 60))
	require.NoError(t, s.AppendMeal(ctx, "alice", m2, 100))
	require.NoError(t, s.AppendElimination(ctx, "alice", e1, 30))
	require.NoError(t, s.AppendMeal(ctx, "bob", sampleMeal("m3", at(1, 9, 0), 20), 20))

	meals, err = s.Meals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assertSameMeal(t, m1, meals[0])
	assertSameMeal(t, m2, meals[1])

	elims, err := s.Eliminations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, elims, 1)
	assertSameElimination(t, e1, elims[0])

	stock, err = s.Stock(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 30, stock, 1e-9)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestLoadHistory(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendMeal(ctx, "alice", sampleMeal("m1", at(1, 8, 0), 60), 60))
	require.NoError(t, st.AppendElimination(ctx, "alice", sampleElimination("e1", at(1, 20, 0), 10), 50))

	h, err := LoadHistory(ctx, st, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", h.User)
	assert.Len(t, h.Meals, 1)
	assert.Len(t, h.Eliminations, 1)
	assert.InDelta(t, 50, h.Stock, 1e-9)
}

func TestCopy_SQLiteToFile(t *testing.T) {
	ctx := context.Background()
	src := newTestSQLiteStore(t)
	require.NoError(t, src.AppendMeal(ctx, "alice", sampleMeal("m1", at(1, 8, 0), 60), 60))
	require.NoError(t, src.AppendElimination(ctx, "alice", sampleElimination("e1", at(1, 20, 0), 10), 50))
	require.NoError(t, src.AppendMeal(ctx, "bob", sampleMeal("m2", at(1, 9, 0), 25), 25))

	dst, err := NewFile(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)

	n, err := Copy(ctx, dst, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	users, err := dst.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	h, err := LoadHistory(ctx, dst, "alice")
	require.NoError(t, err)
	require.Len(t, h.Meals, 1)
	assert.Equal(t, "m1", h.Meals[0].ID)
	require.Len(t, h.Eliminations, 1)
	assert.InDelta(t, 50, h.Stock, 1e-9)
}

func TestCopy_FileToSQLiteUsesAppends(t *testing.T) {
	ctx := context.Background()
	src, err := NewFile(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	require.NoError(t, src.AppendMeal(ctx, "alice", sampleMeal("m1", at(1, 8, 0), 60), 60))
	require.NoError(t, src.AppendMeal(ctx, "alice", sampleMeal("m2", at(1, 12, 0), 15), 75))

	dst := newTestSQLiteStore(t)
	n, err := Copy(ctx, dst, src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	meals, err := dst.Meals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, "m1", meals[0].ID)
	assert.Equal(t, "m2", meals[1].ID)

	stock, err := dst.Stock(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 75, stock, 1e-9)
}

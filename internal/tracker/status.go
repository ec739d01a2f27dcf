package tracker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/store"
	"github.com/sells-group/gutlog/internal/transit"
)

// Status is a user's current state and next-elimination outlook.
type Status struct {
	User            string     `json:"user"`
	StockG          float64    `json:"stock_g"`
	LastElimination *time.Time `json:"last_elimination,omitempty"`
	LatestMeal      *time.Time `json:"latest_meal,omitempty"`

	// MealsSinceElimination lists meals after the last elimination, oldest
	// first.
	MealsSinceElimination []model.MealEvent `json:"meals_since_elimination"`

	Transit transit.Result `json:"transit"`
	// PredictedAt is set only when a personalized median and a latest meal
	// both exist. Otherwise InsufficientData is true.
	PredictedAt      *time.Time `json:"predicted_at,omitempty"`
	InsufficientData bool       `json:"insufficient_data"`

	// ColdStart is the fixed-heuristic estimate, given only when there is
	// no personalized prediction and cold-start estimates are enabled.
	ColdStart *transit.ColdStartEstimate `json:"cold_start,omitempty"`
}

// Status reports the user's stock, recent history and prediction.
func (t *Tracker) Status(ctx context.Context, req Request) (*Status, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := req.at()

	h, err := store.LoadHistory(ctx, t.store, req.User)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: load history")
	}

	st := &Status{
		User:    req.User,
		StockG:  h.Stock,
		Transit: t.estimate(now, h),
	}

	lastElim, hasElim := model.LatestElimination(h.Eliminations)
	if hasElim {
		st.LastElimination = &lastElim
	}
	latestMeal, hasMeal := model.LatestMeal(h.Meals)
	if hasMeal {
		st.LatestMeal = &latestMeal
	}

	st.MealsSinceElimination = []model.MealEvent{}
	for _, m := range h.Meals {
		if !hasElim || m.Timestamp.After(lastElim) {
			st.MealsSinceElimination = append(st.MealsSinceElimination, m)
		}
	}

	if predicted, ok := transit.Predict(latestMeal, hasMeal, st.Transit); ok {
		st.PredictedAt = &predicted
		return st, nil
	}

	st.InsufficientData = true
	if t.cfg.ColdStart && hasElim {
		cs := transit.ColdStart(lastElim, h.Stock)
		st.ColdStart = &cs
	}
	return st, nil
}

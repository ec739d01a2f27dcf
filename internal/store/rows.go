package store

import (
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/model"
)

const mealColumns = `id, ts, food_label, personal_mass_g, predicted_excretion_g, meal_type, diner_count, consumption_ratio, calories_kcal`

const eliminationColumns = `id, ts, discharged_mass_g, predicted_at, error_minutes, full_discharge`

const mealColumnsWithUser = `id, user_name, ts, food_label, personal_mass_g, predicted_excretion_g, meal_type, diner_count, consumption_ratio, calories_kcal`

const eliminationColumnsWithUser = `id, user_name, ts, discharged_mass_g, predicted_at, error_minutes, full_discharge`

type scannable interface {
	Scan(dest ...any) error
}

func scanMeal(row scannable) (model.MealEvent, error) {
	var (
		m        model.MealEvent
		ts       string
		mealType string
	)
	if err := row.Scan(&m.ID, &ts, &m.FoodLabel, &m.PersonalMassG, &m.PredictedExcretionG,
		&mealType, &m.DinerCount, &m.ConsumptionRatio, &m.CaloriesKcal); err != nil {
		return m, eris.Wrap(err, "scan meal")
	}
	t, err := model.ParseTimestamp(ts)
	if err != nil {
		return m, err
	}
	m.Timestamp = t
	m.MealType = model.MealType(mealType)
	return m, nil
}

func scanElimination(row scannable) (model.EliminationEvent, error) {
	var (
		e           model.EliminationEvent
		ts          string
		predictedAt sql.NullString
		errMinutes  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &ts, &e.DischargedMassG, &predictedAt, &errMinutes, &e.Full); err != nil {
		return e, eris.Wrap(err, "scan elimination")
	}
	t, err := model.ParseTimestamp(ts)
	if err != nil {
		return e, err
	}
	e.Timestamp = t
	if predictedAt.Valid && predictedAt.String != "" {
		p, err := model.ParseTimestamp(predictedAt.String)
		if err != nil {
			return e, err
		}
		e.PredictedAt = &p
	}
	if errMinutes.Valid {
		v := int(errMinutes.Int64)
		e.ErrorMinutes = &v
	}
	return e, nil
}

func mealArgs(user string, m model.MealEvent) []any {
	return []any{
		m.ID, user, model.FormatTimestamp(m.Timestamp), m.FoodLabel, m.PersonalMassG,
		m.PredictedExcretionG, string(m.MealType), m.DinerCount, m.ConsumptionRatio, m.CaloriesKcal,
	}
}

func eliminationArgs(user string, e model.EliminationEvent) []any {
	var predictedAt, errMinutes any
	if e.PredictedAt != nil {
		predictedAt = model.FormatTimestamp(*e.PredictedAt)
	}
	if e.ErrorMinutes != nil {
		errMinutes = *e.ErrorMinutes
	}
	return []any{
		e.ID, user, model.FormatTimestamp(e.Timestamp), e.DischargedMassG, predictedAt, errMinutes, e.Full,
	}
}

func splitColumns(cols string) []string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

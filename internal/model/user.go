package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// CurrentSchemaVersion is the UserRecord layout written by this version.
const CurrentSchemaVersion = 1

// UserRecord is the document-store form of one user's log and cached stock.
type UserRecord struct {
	SchemaVersion int                 `json:"schema_version"`
	StockG        float64             `json:"stock_g"`
	Meals         []MealRecord        `json:"meals"`
	Eliminations  []EliminationRecord `json:"eliminations"`
}

// MealRecord is MealEvent with its timestamp in TimestampLayout.
type MealRecord struct {
	ID                  string   `json:"id"`
	Timestamp           string   `json:"timestamp"`
	FoodLabel           string   `json:"food_label"`
	PersonalMassG       float64  `json:"personal_mass_g"`
	PredictedExcretionG float64  `json:"predicted_excretion_g"`
	MealType            MealType `json:"meal_type,omitempty"`
	DinerCount          int      `json:"diner_count,omitempty"`
	ConsumptionRatio    float64  `json:"consumption_ratio,omitempty"`
	CaloriesKcal        float64  `json:"calories_kcal,omitempty"`
}

// EliminationRecord is EliminationEvent with timestamps in TimestampLayout.
type EliminationRecord struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	DischargedMassG float64 `json:"discharged_mass_g"`
	PredictedAt     string  `json:"predicted_at,omitempty"`
	ErrorMinutes    *int    `json:"error_minutes,omitempty"`
	Full            bool    `json:"full,omitempty"`
}

// NewMealRecord converts a MealEvent for storage.
func NewMealRecord(m MealEvent) MealRecord {
	return MealRecord{
		ID:                  m.ID,
		Timestamp:           FormatTimestamp(m.Timestamp),
		FoodLabel:           m.FoodLabel,
		PersonalMassG:       m.PersonalMassG,
		PredictedExcretionG: m.PredictedExcretionG,
		MealType:            m.MealType,
		DinerCount:          m.DinerCount,
		ConsumptionRatio:    m.ConsumptionRatio,
		CaloriesKcal:        m.CaloriesKcal,
	}
}

// Event converts the record back to a MealEvent.
func (r MealRecord) Event() (MealEvent, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return MealEvent{}, eris.Wrapf(err, "model: meal %s", r.ID)
	}
	return MealEvent{
		ID:                  r.ID,
		Timestamp:           ts,
		FoodLabel:           r.FoodLabel,
		PersonalMassG:       r.PersonalMassG,
		PredictedExcretionG: r.PredictedExcretionG,
		MealType:            r.MealType,
		DinerCount:          r.DinerCount,
		ConsumptionRatio:    r.ConsumptionRatio,
		CaloriesKcal:        r.CaloriesKcal,
	}, nil
}

// NewEliminationRecord converts an EliminationEvent for storage.
func NewEliminationRecord(e EliminationEvent) EliminationRecord {
	r := EliminationRecord{
		ID:              e.ID,
		Timestamp:       FormatTimestamp(e.Timestamp),
		DischargedMassG: e.DischargedMassG,
		ErrorMinutes:    e.ErrorMinutes,
		Full:            e.Full,
	}
	if e.PredictedAt != nil {
		r.PredictedAt = FormatTimestamp(*e.PredictedAt)
	}
	return r
}

// Event converts the record back to an EliminationEvent.
func (r EliminationRecord) Event() (EliminationEvent, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return EliminationEvent{}, eris.Wrapf(err, "model: elimination %s", r.ID)
	}
	e := EliminationEvent{
		ID:              r.ID,
		Timestamp:       ts,
		DischargedMassG: r.DischargedMassG,
		ErrorMinutes:    r.ErrorMinutes,
		Full:            r.Full,
	}
	if r.PredictedAt != "" {
		p, err := ParseTimestamp(r.PredictedAt)
		if err != nil {
			return EliminationEvent{}, eris.Wrapf(err, "model: elimination %s prediction", r.ID)
		}
		e.PredictedAt = &p
	}
	return e, nil
}

// legacyUserRecord is the unversioned layout: a single "last elimination"
// time and the meals eaten since, with raw intake weight as the stock.
type legacyUserRecord struct {
	LastPoop    string       `json:"last_poop"`
	Meals       []legacyMeal `json:"meals_since_last_poop"`
	TotalWeight float64      `json:"total_weight_in_stomach"`
}

type legacyMeal struct {
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Calories    float64 `json:"calories"`
	PeopleCount int     `json:"people_count"`
}

var legacyMealTypes = map[string]MealType{
	"아침":    MealTypeBreakfast,
	"점심":    MealTypeLunch,
	"저녁":    MealTypeDinner,
	"야식/간식": MealTypeSnack,
}

// UpgradeUserRecord decodes a stored user document of any known schema
// version and returns it in the current layout. newID supplies IDs for
// events that predate them.
func UpgradeUserRecord(raw json.RawMessage, newID func() string) (*UserRecord, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, eris.Wrap(err, "model: probe user record")
	}

	switch probe.SchemaVersion {
	case 0:
		var legacy legacyUserRecord
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, eris.Wrap(err, "model: decode legacy user record")
		}
		return upgradeLegacy(legacy, newID)
	case CurrentSchemaVersion:
		var rec UserRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrap(err, "model: decode user record")
		}
		return &rec, nil
	default:
		return nil, eris.Errorf("model: unsupported user record schema version %d", probe.SchemaVersion)
	}
}

// upgradeLegacy maps v0 onto v1. The last elimination becomes a full
// discharge and each meal keeps its intake weight as its excretion
// contribution, so replaying the upgraded log reproduces the legacy stock.
func upgradeLegacy(legacy legacyUserRecord, newID func() string) (*UserRecord, error) {
	rec := &UserRecord{
		SchemaVersion: CurrentSchemaVersion,
		StockG:        legacy.TotalWeight,
		Meals:         []MealRecord{},
		Eliminations:  []EliminationRecord{},
	}

	if strings.TrimSpace(legacy.LastPoop) != "" {
		if _, err := ParseTimestamp(legacy.LastPoop); err != nil {
			return nil, eris.Wrap(err, "model: legacy last elimination")
		}
		rec.Eliminations = append(rec.Eliminations, EliminationRecord{
			ID:        newID(),
			Timestamp: legacy.LastPoop,
			Full:      true,
		})
	}

	for _, m := range legacy.Meals {
		if _, err := ParseTimestamp(m.Date); err != nil {
			return nil, eris.Wrap(err, "model: legacy meal")
		}
		diners := m.PeopleCount
		if diners < 1 {
			diners = 1
		}
		rec.Meals = append(rec.Meals, MealRecord{
			ID:                  newID(),
			Timestamp:           m.Date,
			FoodLabel:           m.Name,
			PersonalMassG:       m.Weight,
			PredictedExcretionG: m.Weight,
			MealType:            legacyMealTypes[m.Type],
			DinerCount:          diners,
			ConsumptionRatio:    1,
			CaloriesKcal:        m.Calories,
		})
	}

	return rec, nil
}

// NewUserRecord returns an empty current-schema record.
func NewUserRecord() *UserRecord {
	return &UserRecord{
		SchemaVersion: CurrentSchemaVersion,
		Meals:         []MealRecord{},
		Eliminations:  []EliminationRecord{},
	}
}

// Events decodes every stored event of the record.
func (r *UserRecord) Events() ([]MealEvent, []EliminationEvent, error) {
	meals := make([]MealEvent, 0, len(r.Meals))
	for _, mr := range r.Meals {
		m, err := mr.Event()
		if err != nil {
			return nil, nil, err
		}
		meals = append(meals, m)
	}
	elims := make([]EliminationEvent, 0, len(r.Eliminations))
	for _, er := range r.Eliminations {
		e, err := er.Event()
		if err != nil {
			return nil, nil, err
		}
		elims = append(elims, e)
	}
	return meals, elims, nil
}

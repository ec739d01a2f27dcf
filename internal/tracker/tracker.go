// Package tracker runs the meal and elimination workflows for one user
// request at a time: recognition, portioning, excretion estimate, ledger
// update, persistence and transit prediction.
package tracker

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/estimate"
	"github.com/sells-group/gutlog/internal/ledger"
	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/nutrient"
	"github.com/sells-group/gutlog/internal/recognize"
	"github.com/sells-group/gutlog/internal/store"
	"github.com/sells-group/gutlog/internal/transit"
)

var (
	// ErrInvalidMass is returned for a negative or non-finite discharged mass.
	ErrInvalidMass = eris.New("discharged mass must be a non-negative number")
	// ErrEmptyUser is returned when a request carries no user.
	ErrEmptyUser = eris.New("user is required")
	// ErrInvalidRatio is returned for a negative or non-finite consumption ratio.
	ErrInvalidRatio = eris.New("consumption ratio must be a non-negative number")
	// ErrInvalidMealType is returned for an unknown meal type.
	ErrInvalidMealType = eris.New("unknown meal type")
	// ErrNoDraft is returned when RecordMeal is called without a draft.
	ErrNoDraft = eris.New("meal draft is required")
)

// Request identifies who is acting and when. A zero Now means the
// current time.
type Request struct {
	User string
	Now  time.Time
}

func (r Request) validate() error {
	if strings.TrimSpace(r.User) == "" {
		return ErrEmptyUser
	}
	return nil
}

// at returns the request time at minute resolution, matching what the
// store keeps.
func (r Request) at() time.Time {
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}
	return model.TruncateMinute(now)
}

// Analyzer turns a photo into a validated recognition result.
// *recognize.Service implements it.
type Analyzer interface {
	AnalyzePhoto(ctx context.Context, photo []byte) (*model.FoodRecognitionResult, error)
}

// Config holds the tunables applied to every request.
type Config struct {
	Coefficients estimate.Coefficients
	Transit      transit.Options
	// ColdStart enables the fixed-heuristic estimate in Status when no
	// personalized prediction exists.
	ColdStart bool
}

// DefaultConfig returns the default coefficients and transit options with
// cold-start estimates enabled.
func DefaultConfig() Config {
	return Config{
		Coefficients: estimate.DefaultCoefficients(),
		Transit:      transit.DefaultOptions(),
		ColdStart:    true,
	}
}

// Tracker coordinates the store with the estimation packages.
type Tracker struct {
	store    store.Store
	analyzer Analyzer
	table    *nutrient.Table
	cfg      Config
}

// New returns a Tracker. analyzer may be nil, in which case AnalyzePhoto
// always fails with recognize.ErrRecognitionFailed. A nil table resolves
// every food to the default profile.
func New(st store.Store, analyzer Analyzer, table *nutrient.Table, cfg Config) *Tracker {
	return &Tracker{store: st, analyzer: analyzer, table: table, cfg: cfg}
}

// PortionInput describes how a dish was shared.
type PortionInput struct {
	DinerCount int            `json:"diner_count"`
	Ratio      float64        `json:"consumption_ratio"`
	MealType   model.MealType `json:"meal_type,omitempty"`
}

func (p PortionInput) normalized() (PortionInput, error) {
	if p.DinerCount < 1 {
		return p, eris.Wrapf(estimate.ErrInvalidDinerCount, "tracker: got %d", p.DinerCount)
	}
	if math.IsNaN(p.Ratio) || math.IsInf(p.Ratio, 0) || p.Ratio < 0 {
		return p, eris.Wrapf(ErrInvalidRatio, "tracker: got %v", p.Ratio)
	}
	if p.Ratio == 0 {
		p.Ratio = 1
	}
	if !p.MealType.Valid() {
		return p, eris.Wrapf(ErrInvalidMealType, "tracker: got %q", p.MealType)
	}
	return p, nil
}

// MealDraft is a fully computed meal awaiting confirmation.
type MealDraft struct {
	Recognition         model.FoodRecognitionResult `json:"recognition"`
	Portion             PortionInput                `json:"portion"`
	Profile             model.NutrientProfile       `json:"profile"`
	ProfileFound        bool                        `json:"profile_found"`
	PersonalMassG       float64                     `json:"personal_mass_g"`
	Nutrients           model.Nutrients             `json:"nutrients"`
	PredictedExcretionG float64                     `json:"predicted_excretion_g"`
	CaloriesKcal        float64                     `json:"calories_kcal"`
}

// BuildDraft computes a draft from a recognition result, whether it came
// from the recognizer or was typed in by hand.
func (t *Tracker) BuildDraft(result model.FoodRecognitionResult, in PortionInput) (*MealDraft, error) {
	result.FoodName = strings.TrimSpace(result.FoodName)
	if result.FoodName == "" {
		return nil, recognize.ErrMissingName
	}
	if math.IsNaN(result.TotalMassG) || math.IsInf(result.TotalMassG, 0) {
		return nil, eris.Wrapf(recognize.ErrInvalidMass, "tracker: got %v", result.TotalMassG)
	}
	if result.TotalMassG <= 0 {
		return nil, eris.Wrapf(recognize.ErrNonPositiveMass, "tracker: got %v", result.TotalMassG)
	}
	in, err := in.normalized()
	if err != nil {
		return nil, err
	}

	share, err := estimate.ComputeShare(result.TotalMassG, in.DinerCount, in.Ratio)
	if err != nil {
		return nil, err
	}
	profile, found := t.table.Lookup(result.FoodName)
	if !found {
		profile = model.DefaultNutrientProfile
	}
	nutrients := estimate.ScaleNutrients(profile, share)

	return &MealDraft{
		Recognition:         result,
		Portion:             in,
		Profile:             profile,
		ProfileFound:        found,
		PersonalMassG:       share,
		Nutrients:           nutrients,
		PredictedExcretionG: estimate.Excretion(nutrients, t.cfg.Coefficients),
		CaloriesKcal:        result.CaloriesKcal * share / result.TotalMassG,
	}, nil
}

// AnalyzePhoto recognizes the food in photo and builds a draft from it.
// Any recognition failure satisfies errors.Is(err,
// recognize.ErrRecognitionFailed); callers fall back to BuildDraft with
// manually entered values.
func (t *Tracker) AnalyzePhoto(ctx context.Context, req Request, photo []byte, in PortionInput) (*MealDraft, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := in.normalized(); err != nil {
		return nil, err
	}
	if t.analyzer == nil {
		return nil, eris.Wrap(recognize.ErrRecognitionFailed, "tracker: no recognizer configured")
	}

	res, err := t.analyzer.AnalyzePhoto(ctx, photo)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("tracker: photo analyzed",
		zap.String("user", req.User),
		zap.String("food_name", res.FoodName),
	)
	return t.BuildDraft(*res, in)
}

// MealReceipt is what RecordMeal stored.
type MealReceipt struct {
	Meal   model.MealEvent `json:"meal"`
	StockG float64         `json:"stock_g"`
}

// RecordMeal appends the draft as a meal. The cached stock is replayed
// from the log so a back-dated meal is counted in time order.
func (t *Tracker) RecordMeal(ctx context.Context, req Request, draft *MealDraft) (*MealReceipt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoDraft
	}

	h, err := store.LoadHistory(ctx, t.store, req.User)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: load history")
	}

	meal := model.MealEvent{
		ID:                  uuid.New().String(),
		Timestamp:           req.at(),
		FoodLabel:           draft.Recognition.FoodName,
		PersonalMassG:       draft.PersonalMassG,
		PredictedExcretionG: draft.PredictedExcretionG,
		MealType:            draft.Portion.MealType,
		DinerCount:          draft.Portion.DinerCount,
		ConsumptionRatio:    draft.Portion.Ratio,
		CaloriesKcal:        draft.CaloriesKcal,
	}
	// Replay so a back-dated meal lands in chronological order.
	entries := append(ledger.Entries(h.Meals, h.Eliminations),
		ledger.Entry{At: meal.Timestamp, Kind: ledger.EntryMeal, MassG: meal.PredictedExcretionG})
	l := ledger.Rebuild(entries)

	if err := t.store.AppendMeal(ctx, req.User, meal, l.Stock()); err != nil {
		return nil, eris.Wrap(err, "tracker: append meal")
	}

	zap.L().Info("tracker: meal recorded",
		zap.String("user", req.User),
		zap.String("food", meal.FoodLabel),
		zap.Float64("personal_mass_g", meal.PersonalMassG),
		zap.Float64("predicted_excretion_g", meal.PredictedExcretionG),
		zap.Float64("stock_g", l.Stock()),
	)
	return &MealReceipt{Meal: meal, StockG: l.Stock()}, nil
}

// EliminationReceipt is what RecordElimination or Reset stored.
type EliminationReceipt struct {
	Elimination model.EliminationEvent `json:"elimination"`
	// RemovedG is how much the tracked stock actually went down, which is
	// less than the logged mass when the stock ran out.
	RemovedG float64 `json:"removed_g"`
	StockG   float64 `json:"stock_g"`
}

// RecordElimination logs dischargedG exactly as given and lowers the
// stock by at most what is tracked. When a personalized prediction existed
// beforehand the event carries it and the error in minutes.
func (t *Tracker) RecordElimination(ctx context.Context, req Request, dischargedG float64) (*EliminationReceipt, error) {
	if math.IsNaN(dischargedG) || math.IsInf(dischargedG, 0) || dischargedG < 0 {
		return nil, eris.Wrapf(ErrInvalidMass, "tracker: got %v", dischargedG)
	}
	return t.recordElimination(ctx, req, dischargedG, false)
}

// Reset records a full discharge: the stock goes to zero and the event
// logs the amount cleared.
func (t *Tracker) Reset(ctx context.Context, req Request) (*EliminationReceipt, error) {
	return t.recordElimination(ctx, req, 0, true)
}

func (t *Tracker) recordElimination(ctx context.Context, req Request, dischargedG float64, full bool) (*EliminationReceipt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := req.at()

	h, err := store.LoadHistory(ctx, t.store, req.User)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: load history")
	}

	elim := model.EliminationEvent{
		ID:        uuid.New().String(),
		Timestamp: now,
		Full:      full,
	}
	if predicted, ok := t.predict(now, h); ok {
		minutes := model.PredictionErrorMinutes(now, predicted)
		elim.PredictedAt = &predicted
		elim.ErrorMinutes = &minutes
	}

	// The removed amount depends on the stock at the event's own time,
	// which differs from the cached stock when the event is back-dated.
	entries := ledger.Entries(h.Meals, h.Eliminations)
	then := ledger.New(ledger.StockBefore(entries, now, ledger.EntryElimination))
	var removed float64
	if full {
		removed = then.Reset()
		elim.DischargedMassG = removed
	} else {
		removed = then.ApplyElimination(dischargedG)
		elim.DischargedMassG = dischargedG
	}
	l := ledger.Rebuild(append(entries, ledger.Entry{
		At: now, Kind: ledger.EntryElimination, MassG: elim.DischargedMassG, Full: full,
	}))

	if err := t.store.AppendElimination(ctx, req.User, elim, l.Stock()); err != nil {
		return nil, eris.Wrap(err, "tracker: append elimination")
	}

	fields := []zap.Field{
		zap.String("user", req.User),
		zap.Bool("full", full),
		zap.Float64("discharged_g", elim.DischargedMassG),
		zap.Float64("removed_g", removed),
		zap.Float64("stock_g", l.Stock()),
	}
	if elim.ErrorMinutes != nil {
		fields = append(fields, zap.Int("error_minutes", *elim.ErrorMinutes))
	}
	zap.L().Info("tracker: elimination recorded", fields...)

	return &EliminationReceipt{Elimination: elim, RemovedG: removed, StockG: l.Stock()}, nil
}

func (t *Tracker) estimate(now time.Time, h *store.History) transit.Result {
	return transit.Estimate(now,
		model.MealTimes(h.Meals),
		model.EliminationTimes(h.Eliminations),
		t.cfg.Transit,
	)
}

// predict uses only meals up to now, so a back-dated elimination is judged
// against what was known at its own time.
func (t *Tracker) predict(now time.Time, h *store.History) (time.Time, bool) {
	var earlier []model.MealEvent
	for _, m := range h.Meals {
		if !m.Timestamp.After(now) {
			earlier = append(earlier, m)
		}
	}
	latest, ok := model.LatestMeal(earlier)
	return transit.Predict(latest, ok, t.estimate(now, h))
}

// NutrientLookup is the result of LookupNutrients.
type NutrientLookup struct {
	Name    string                `json:"name"`
	Profile model.NutrientProfile `json:"profile"`
	Found   bool                  `json:"found"`
}

// LookupNutrients resolves a food name against the reference table. A miss
// returns the default profile with Found false.
func (t *Tracker) LookupNutrients(name string) NutrientLookup {
	profile, found := t.table.Lookup(name)
	if !found {
		profile = model.DefaultNutrientProfile
	}
	return NutrientLookup{Name: nutrient.NormalizeKey(name), Profile: profile, Found: found}
}

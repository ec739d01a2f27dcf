package store

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/ledger"
	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/pkg/notion"
)

// Notion property names.
const (
	propID           = "ID"
	propUser         = "User"
	propTimestamp    = "Timestamp"
	propFood         = "Food"
	propMass         = "Mass (g)"
	propExcretion    = "Excretion (g)"
	propMealType     = "Meal Type"
	propDiners       = "Diners"
	propRatio        = "Ratio"
	propCalories     = "Calories"
	propDischarged   = "Discharged (g)"
	propPredictedAt  = "Predicted At"
	propErrorMinutes = "Error (min)"
	propFull         = "Full"
)

// NotionStore keeps meals and eliminations as pages in two Notion
// databases. Notion has no transactions, so the stock is never stored:
// Stock replays the log every time and SetStock is a no-op.
type NotionStore struct {
	client         notion.Client
	mealsDB        string
	eliminationsDB string
}

// NewNotion creates a NotionStore over the given meal and elimination
// database IDs.
func NewNotion(client notion.Client, mealsDB, eliminationsDB string) *NotionStore {
	return &NotionStore{client: client, mealsDB: mealsDB, eliminationsDB: eliminationsDB}
}

// Migrate checks that both databases are reachable. The databases and
// their properties are created in Notion by hand.
func (s *NotionStore) Migrate(ctx context.Context) error {
	for _, db := range []string{s.mealsDB, s.eliminationsDB} {
		if err := notion.Reachable(ctx, s.client, db); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *NotionStore) Close() error { return nil }

func (s *NotionStore) createPage(ctx context.Context, db string, props notionapi.Properties) error {
	_, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(db),
		},
		Properties: props,
	})
	return err
}

func (s *NotionStore) AppendMeal(ctx context.Context, user string, meal model.MealEvent, _ float64) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	props := notionapi.Properties{
		propID:        notion.Title(meal.ID),
		propUser:      notion.Text(user),
		propTimestamp: notion.Text(model.FormatTimestamp(meal.Timestamp)),
		propFood:      notion.Text(meal.FoodLabel),
		propMass:      notion.Number(meal.PersonalMassG),
		propExcretion: notion.Number(meal.PredictedExcretionG),
		propMealType:  notion.Text(string(meal.MealType)),
		propDiners:    notion.Number(float64(meal.DinerCount)),
		propRatio:     notion.Number(meal.ConsumptionRatio),
		propCalories:  notion.Number(meal.CaloriesKcal),
	}
	return eris.Wrapf(s.createPage(ctx, s.mealsDB, props), "notion: append meal for %s", user)
}

func (s *NotionStore) AppendElimination(ctx context.Context, user string, elim model.EliminationEvent, _ float64) error {
	if elim.ID == "" {
		elim.ID = uuid.New().String()
	}
	props := notionapi.Properties{
		propID:         notion.Title(elim.ID),
		propUser:       notion.Text(user),
		propTimestamp:  notion.Text(model.FormatTimestamp(elim.Timestamp)),
		propDischarged: notion.Number(elim.DischargedMassG),
		propFull:       notion.Checkbox(elim.Full),
	}
	if elim.PredictedAt != nil {
		props[propPredictedAt] = notion.Text(model.FormatTimestamp(*elim.PredictedAt))
	}
	if elim.ErrorMinutes != nil {
		props[propErrorMinutes] = notion.Number(float64(*elim.ErrorMinutes))
	}
	return eris.Wrapf(s.createPage(ctx, s.eliminationsDB, props), "notion: append elimination for %s", user)
}

func (s *NotionStore) userPages(ctx context.Context, db, user string) ([]notionapi.Page, error) {
	return notion.QueryByText(ctx, s.client, db, propUser, user,
		notionapi.SortObject{Property: propTimestamp, Direction: notionapi.SortOrderASC})
}

// Meals returns the user's meals in timestamp order.
func (s *NotionStore) Meals(ctx context.Context, user string) ([]model.MealEvent, error) {
	pages, err := s.userPages(ctx, s.mealsDB, user)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: meals for %s", user)
	}
	out := make([]model.MealEvent, 0, len(pages))
	for _, p := range pages {
		m, err := mealFromPage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Eliminations returns the user's eliminations in timestamp order.
func (s *NotionStore) Eliminations(ctx context.Context, user string) ([]model.EliminationEvent, error) {
	pages, err := s.userPages(ctx, s.eliminationsDB, user)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: eliminations for %s", user)
	}
	out := make([]model.EliminationEvent, 0, len(pages))
	for _, p := range pages {
		e, err := eliminationFromPage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func mealFromPage(p notionapi.Page) (model.MealEvent, error) {
	ts, err := model.ParseTimestamp(notion.PlainText(p.Properties, propTimestamp))
	if err != nil {
		return model.MealEvent{}, eris.Wrapf(err, "notion: meal page %s", p.ID)
	}
	m := model.MealEvent{
		ID:        notion.PlainText(p.Properties, propID),
		Timestamp: ts,
		FoodLabel: notion.PlainText(p.Properties, propFood),
		MealType:  model.MealType(notion.PlainText(p.Properties, propMealType)),
	}
	m.PersonalMassG, _ = notion.NumberValue(p.Properties, propMass)
	m.PredictedExcretionG, _ = notion.NumberValue(p.Properties, propExcretion)
	m.ConsumptionRatio, _ = notion.NumberValue(p.Properties, propRatio)
	m.CaloriesKcal, _ = notion.NumberValue(p.Properties, propCalories)
	diners, _ := notion.NumberValue(p.Properties, propDiners)
	m.DinerCount = int(diners)
	return m, nil
}

func eliminationFromPage(p notionapi.Page) (model.EliminationEvent, error) {
	ts, err := model.ParseTimestamp(notion.PlainText(p.Properties, propTimestamp))
	if err != nil {
		return model.EliminationEvent{}, eris.Wrapf(err, "notion: elimination page %s", p.ID)
	}
	e := model.EliminationEvent{
		ID:        notion.PlainText(p.Properties, propID),
		Timestamp: ts,
		Full:      notion.CheckboxValue(p.Properties, propFull),
	}
	e.DischargedMassG, _ = notion.NumberValue(p.Properties, propDischarged)
	if raw := notion.PlainText(p.Properties, propPredictedAt); raw != "" {
		at, err := model.ParseTimestamp(raw)
		if err != nil {
			return model.EliminationEvent{}, eris.Wrapf(err, "notion: elimination page %s", p.ID)
		}
		e.PredictedAt = &at
	}
	if v, ok := notion.NumberValue(p.Properties, propErrorMinutes); ok {
		minutes := int(v)
		e.ErrorMinutes = &minutes
	}
	return e, nil
}

// Stock replays the user's log.
func (s *NotionStore) Stock(ctx context.Context, user string) (float64, error) {
	meals, err := s.Meals(ctx, user)
	if err != nil {
		return 0, err
	}
	elims, err := s.Eliminations(ctx, user)
	if err != nil {
		return 0, err
	}
	return ledger.Rebuild(ledger.Entries(meals, elims)).Stock(), nil
}

// SetStock does nothing; the stock is always derived from the log.
func (s *NotionStore) SetStock(_ context.Context, _ string, _ float64) error { return nil }

// Users collects every user name found in either database.
func (s *NotionStore) Users(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, db := range []string{s.mealsDB, s.eliminationsDB} {
		pages, err := notion.QueryAll(ctx, s.client, db, nil)
		if err != nil {
			return nil, eris.Wrap(err, "notion: list users")
		}
		for _, p := range pages {
			if u := notion.PlainText(p.Properties, propUser); u != "" {
				seen[u] = struct{}{}
			}
		}
	}
	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

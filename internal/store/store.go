// Package store persists per-user meal and elimination logs together with
// the cached stock ledger value.
package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/model"
)

// ErrCorruptStore is reported when a backing document could not be parsed
// and had to be reinitialized.
var ErrCorruptStore = eris.New("store data was corrupt and has been reinitialized")

// Store is an append-only log of meals and eliminations partitioned by user.
// Each append also writes the ledger value after the event, as one unit.
// The log is authoritative; the stored stock is a cache repaired by replay.
type Store interface {
	AppendMeal(ctx context.Context, user string, meal model.MealEvent, stockAfter float64) error
	AppendElimination(ctx context.Context, user string, elim model.EliminationEvent, stockAfter float64) error

	// Meals and Eliminations return every event of the user. Order is
	// backend-defined: append order for SQL stores, timestamp order for
	// Notion. Callers sort before relying on order.
	Meals(ctx context.Context, user string) ([]model.MealEvent, error)
	Eliminations(ctx context.Context, user string) ([]model.EliminationEvent, error)

	// Stock returns the cached ledger value, 0 for an unknown user.
	Stock(ctx context.Context, user string) (float64, error)
	SetStock(ctx context.Context, user string, stock float64) error

	// Users lists every user with stored state, sorted.
	Users(ctx context.Context) ([]string, error)

	Migrate(ctx context.Context) error
	Close() error
}

// History is a user's full log plus the cached stock.
type History struct {
	User         string
	Meals        []model.MealEvent
	Eliminations []model.EliminationEvent
	Stock        float64
}

// Bulk is implemented by backends that can load a whole history at once.
type Bulk interface {
	ImportHistory(ctx context.Context, h History) error
}

// LoadHistory reads everything stored for user.
func LoadHistory(ctx context.Context, s Store, user string) (*History, error) {
	meals, err := s.Meals(ctx, user)
	if err != nil {
		return nil, err
	}
	elims, err := s.Eliminations(ctx, user)
	if err != nil {
		return nil, err
	}
	stock, err := s.Stock(ctx, user)
	if err != nil {
		return nil, err
	}
	return &History{User: user, Meals: meals, Eliminations: elims, Stock: stock}, nil
}

// Copy replays every user's history from src into dst, using dst's bulk
// path when it has one. It returns the number of users copied.
func Copy(ctx context.Context, dst, src Store) (int, error) {
	users, err := src.Users(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: list source users")
	}

	for i, u := range users {
		h, err := LoadHistory(ctx, src, u)
		if err != nil {
			return i, eris.Wrapf(err, "store: read %s", u)
		}
		if err := importHistory(ctx, dst, *h); err != nil {
			return i, eris.Wrapf(err, "store: write %s", u)
		}
		zap.L().Info("store: user copied",
			zap.String("user", u),
			zap.Int("meals", len(h.Meals)),
			zap.Int("eliminations", len(h.Eliminations)),
		)
	}
	return len(users), nil
}

func importHistory(ctx context.Context, dst Store, h History) error {
	if b, ok := dst.(Bulk); ok {
		return b.ImportHistory(ctx, h)
	}
	for _, m := range h.Meals {
		if err := dst.AppendMeal(ctx, h.User, m, h.Stock); err != nil {
			return err
		}
	}
	for _, e := range h.Eliminations {
		if err := dst.AppendElimination(ctx, h.User, e, h.Stock); err != nil {
			return err
		}
	}
	return dst.SetStock(ctx, h.User, h.Stock)
}

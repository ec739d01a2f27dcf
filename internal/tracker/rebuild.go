package tracker

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gutlog/internal/ledger"
	"github.com/sells-group/gutlog/internal/store"
)

// stockEpsilon absorbs float noise between the cached and replayed stock.
const stockEpsilon = 1e-6

// RebuildResult describes one user's replay.
type RebuildResult struct {
	User     string  `json:"user"`
	CachedG  float64 `json:"cached_g"`
	RebuiltG float64 `json:"rebuilt_g"`
	Repaired bool    `json:"repaired"`
}

// Rebuild replays the user's log from zero and overwrites the cached stock
// when it disagrees.
func (t *Tracker) Rebuild(ctx context.Context, user string) (*RebuildResult, error) {
	if err := (Request{User: user}).validate(); err != nil {
		return nil, err
	}

	h, err := store.LoadHistory(ctx, t.store, user)
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: load history for %s", user)
	}

	rebuilt := ledger.Rebuild(ledger.Entries(h.Meals, h.Eliminations)).Stock()
	res := &RebuildResult{User: user, CachedG: h.Stock, RebuiltG: rebuilt}
	if math.Abs(rebuilt-h.Stock) <= stockEpsilon {
		return res, nil
	}

	if err := t.store.SetStock(ctx, user, rebuilt); err != nil {
		return nil, eris.Wrapf(err, "tracker: write stock for %s", user)
	}
	res.Repaired = true
	zap.L().Warn("tracker: stock repaired from log",
		zap.String("user", user),
		zap.Float64("cached_g", h.Stock),
		zap.Float64("rebuilt_g", rebuilt),
	)
	return res, nil
}

// RebuildAll runs Rebuild for every stored user with at most concurrency
// users in flight. Results follow the store's user order.
func (t *Tracker) RebuildAll(ctx context.Context, concurrency int) ([]RebuildResult, error) {
	users, err := t.store.Users(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: list users")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]RebuildResult, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range users {
		g.Go(func() error {
			res, err := t.Rebuild(gctx, u)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	repaired := 0
	for _, r := range results {
		if r.Repaired {
			repaired++
		}
	}
	zap.L().Info("tracker: rebuild complete",
		zap.Int("users", len(users)),
		zap.Int("repaired", repaired),
	)
	return results, nil
}

// Package notion is a rate-limited client for the two Notion databases that
// back the meal and elimination logs.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultRPS is Notion's average request limit per integration.
const DefaultRPS = 3

// Client is the part of the Notion API the event store reads and writes
// through. Events are only ever appended, so pages are never updated.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Option tunes a client built by NewClient.
type Option func(*throttledClient)

// WithRateLimit sets requests per second. Zero or less turns throttling off.
func WithRateLimit(rps float64) Option {
	return func(c *throttledClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type throttledClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a client authenticated with an integration token and
// throttled to DefaultRPS.
func NewClient(token string, opts ...Option) Client {
	c := &throttledClient{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(DefaultRPS, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call waits for a rate-limit slot and runs fn, tagging errors with op.
func (c *throttledClient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrapf(err, "notion: rate limit before %s", op)
		}
	}
	if err := fn(ctx); err != nil {
		return eris.Wrapf(err, "notion: %s", op)
	}
	return nil
}

func (c *throttledClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	var resp *notionapi.DatabaseQueryResponse
	err := c.call(ctx, "query database "+dbID, func(ctx context.Context) error {
		var err error
		resp, err = c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *throttledClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	var page *notionapi.Page
	err := c.call(ctx, "create page", func(ctx context.Context) error {
		var err error
		page, err = c.api.Page.Create(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Reachable reports whether dbID exists and is shared with the integration
// by fetching at most one page from it.
func Reachable(ctx context.Context, c Client, dbID string) error {
	if dbID == "" {
		return eris.New("notion: database id is empty")
	}
	if _, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{PageSize: 1}); err != nil {
		return eris.Wrapf(err, "notion: database %s is not reachable", dbID)
	}
	return nil
}

package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/fetcher"
	"github.com/sells-group/gutlog/internal/nutrient"
	"github.com/sells-group/gutlog/internal/recognize"
	"github.com/sells-group/gutlog/internal/store"
	"github.com/sells-group/gutlog/internal/tracker"
	"github.com/sells-group/gutlog/pkg/anthropic"
	"github.com/sells-group/gutlog/pkg/notion"
)

const defaultSQLiteDSN = "gutlog.db"

// initStore opens the configured store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	return openStore(ctx, cfg.Store)
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		st, err = store.NewSQLite(dsn)
	case "file":
		st, err = openFileStore(sc.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	case "notion":
		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
		st = store.NewNotion(client, cfg.Notion.MealsDB, cfg.Notion.EliminationsDB)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func openFileStore(path string) (store.Store, error) {
	fs, err := store.NewFile(path)
	if err != nil {
		return nil, err
	}
	if rec := fs.Recovered(); rec != nil {
		zap.L().Warn("data file was unreadable and has been set aside", zap.Error(rec))
	}
	return fs, nil
}

// initAnalyzer builds the photo recognizer, or nil when none is
// configured.
func initAnalyzer() (tracker.Analyzer, error) {
	rc := cfg.Recognition
	var rec recognize.Recognizer
	switch rc.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key is required (GUTLOG_ANTHROPIC_KEY)")
		}
		rec = recognize.NewAnthropicRecognizer(
			anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.BaseURL),
			rc.Model, int64(rc.MaxTokens),
		)
	case "openai":
		if cfg.OpenAI.Key == "" {
			return nil, eris.New("openai API key is required (GUTLOG_OPENAI_KEY)")
		}
		rec = recognize.NewOpenAIRecognizer(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, rc.Model, nil)
	case "none", "":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported recognition provider: %s", rc.Provider)
	}

	return recognize.NewService(rec, recognize.Options{
		Attempts:       rc.Attempts,
		Backoff:        rc.Backoff(),
		AttemptTimeout: rc.AttemptTimeout(),
		MaxImageDim:    rc.MaxImageDim,
	}), nil
}

// loadNutrients reads the reference table. No source, or a source that
// fails to load, leaves every food on the default profile.
func loadNutrients(ctx context.Context) *nutrient.Table {
	nc := cfg.Nutrients
	if nc.Source == "" {
		return nutrient.NewTable()
	}

	timeout := time.Duration(nc.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	table, err := nutrient.LoadTable(ctx, nc.Source, nutrient.LoadOptions{
		Encoding: nc.Encoding,
		Sheet:    nc.Sheet,
		Sources:  fetcher.DefaultSources(),
	})
	if err != nil {
		zap.L().Warn("nutrient table unavailable, using default profile", zap.String("source", nc.Source), zap.Error(err))
		return nutrient.NewTable()
	}
	return table
}

func trackerConfig() tracker.Config {
	return tracker.Config{
		Coefficients: cfg.Excretion.Resolve(),
		Transit:      cfg.Transit.Options(),
		ColdStart:    cfg.Transit.ColdStart,
	}
}

// env bundles what a command needs.
type env struct {
	Store   store.Store
	Tracker *tracker.Tracker
}

// Close releases the store.
func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode and wires store, recognizer,
// nutrient table and tracker together.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var analyzer tracker.Analyzer
	if mode == config.ModeAnalyze || mode == config.ModeServe {
		analyzer, err = initAnalyzer()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	return &env{
		Store:   st,
		Tracker: tracker.New(st, analyzer, loadNutrients(ctx), trackerConfig()),
	}, nil
}

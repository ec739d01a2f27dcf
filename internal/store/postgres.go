package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/db"
	"github.com/sells-group/gutlog/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	name       TEXT PRIMARY KEY,
	stock_g    DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS meals (
	seq                   BIGSERIAL,
	id                    TEXT PRIMARY KEY,
	user_name             TEXT NOT NULL,
	ts                    TEXT NOT NULL,
	food_label            TEXT NOT NULL,
	personal_mass_g       DOUBLE PRECISION NOT NULL,
	predicted_excretion_g DOUBLE PRECISION NOT NULL,
	meal_type             TEXT NOT NULL DEFAULT '',
	diner_count           INTEGER NOT NULL DEFAULT 1,
	consumption_ratio     DOUBLE PRECISION NOT NULL DEFAULT 1,
	calories_kcal         DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS eliminations (
	seq               BIGSERIAL,
	id                TEXT PRIMARY KEY,
	user_name         TEXT NOT NULL,
	ts                TEXT NOT NULL,
	discharged_mass_g DOUBLE PRECISION NOT NULL,
	predicted_at      TEXT,
	error_minutes     INTEGER,
	full_discharge    BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_meals_user_seq ON meals(user_name, seq);
CREATE INDEX IF NOT EXISTS idx_eliminations_user_seq ON eliminations(user_name, seq);
`

const postgresUpsertStock = `INSERT INTO users (name, stock_g, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET stock_g = EXCLUDED.stock_g, updated_at = now()`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AppendMeal(ctx context.Context, user string, meal model.MealEvent, stockAfter float64) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO meals (`+mealColumnsWithUser+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			mealArgs(user, meal)...,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert meal for %s", user)
		}
		_, err := tx.Exec(ctx, postgresUpsertStock, user, stockAfter)
		return eris.Wrapf(err, "postgres: update stock for %s", user)
	})
}

func (s *PostgresStore) AppendElimination(ctx context.Context, user string, elim model.EliminationEvent, stockAfter float64) error {
	if elim.ID == "" {
		elim.ID = uuid.New().String()
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO eliminations (`+eliminationColumnsWithUser+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			eliminationArgs(user, elim)...,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert elimination for %s", user)
		}
		_, err := tx.Exec(ctx, postgresUpsertStock, user, stockAfter)
		return eris.Wrapf(err, "postgres: update stock for %s", user)
	})
}

func (s *PostgresStore) Meals(ctx context.Context, user string) ([]model.MealEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE user_name = $1 ORDER BY seq`, user)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query meals for %s", user)
	}
	defer rows.Close()

	var out []model.MealEvent
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate meals")
}

func (s *PostgresStore) Eliminations(ctx context.Context, user string) ([]model.EliminationEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eliminationColumns+` FROM eliminations WHERE user_name = $1 ORDER BY seq`, user)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query eliminations for %s", user)
	}
	defer rows.Close()

	var out []model.EliminationEvent
	for rows.Next() {
		e, err := scanElimination(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate eliminations")
}

func (s *PostgresStore) Stock(ctx context.Context, user string) (float64, error) {
	var stock float64
	err := s.pool.QueryRow(ctx, `SELECT stock_g FROM users WHERE name = $1`, user).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: get stock for %s", user)
	}
	return stock, nil
}

func (s *PostgresStore) SetStock(ctx context.Context, user string, stock float64) error {
	_, err := s.pool.Exec(ctx, postgresUpsertStock, user, stock)
	return eris.Wrapf(err, "postgres: set stock for %s", user)
}

func (s *PostgresStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM users ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list users")
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return users, eris.Wrap(err, "postgres: collect users")
}

// ImportHistory bulk-loads a user's history with COPY inside one
// transaction. Existing rows for the user are left in place.
func (s *PostgresStore) ImportHistory(ctx context.Context, h History) error {
	mealRows := make([][]any, len(h.Meals))
	for i, m := range h.Meals {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		mealRows[i] = mealArgs(h.User, m)
	}
	elimRows := make([][]any, len(h.Eliminations))
	for i, e := range h.Eliminations {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		elimRows[i] = eliminationArgs(h.User, e)
	}

	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := db.CopyFrom(ctx, tx, "meals", splitColumns(mealColumnsWithUser), mealRows); err != nil {
			return err
		}
		if _, err := db.CopyFrom(ctx, tx, "eliminations", splitColumns(eliminationColumnsWithUser), elimRows); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, postgresUpsertStock, h.User, h.Stock)
		return eris.Wrapf(err, "postgres: set stock for %s", h.User)
	})
}

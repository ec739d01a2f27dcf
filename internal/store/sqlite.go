package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // register driver

	"github.com/sells-group/gutlog/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	name       TEXT PRIMARY KEY,
	stock_g    REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS meals (
	id                    TEXT PRIMARY KEY,
	user_name             TEXT NOT NULL,
	ts                    TEXT NOT NULL,
	food_label            TEXT NOT NULL,
	personal_mass_g       REAL NOT NULL,
	predicted_excretion_g REAL NOT NULL,
	meal_type             TEXT NOT NULL DEFAULT '',
	diner_count           INTEGER NOT NULL DEFAULT 1,
	consumption_ratio     REAL NOT NULL DEFAULT 1,
	calories_kcal         REAL NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS eliminations (
	id                TEXT PRIMARY KEY,
	user_name         TEXT NOT NULL,
	ts                TEXT NOT NULL,
	discharged_mass_g REAL NOT NULL,
	predicted_at      TEXT,
	error_minutes     INTEGER,
	full_discharge    INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_meals_user ON meals(user_name);
CREATE INDEX IF NOT EXISTS idx_eliminations_user ON eliminations(user_name);
`

const sqliteUpsertStock = `INSERT INTO users (name, stock_g, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET stock_g = excluded.stock_g, updated_at = excluded.updated_at`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) AppendMeal(ctx context.Context, user string, meal model.MealEvent, stockAfter float64) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meals (`+mealColumnsWithUser+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			mealArgs(user, meal)...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert meal for %s", user)
		}
		_, err := tx.ExecContext(ctx, sqliteUpsertStock, user, stockAfter, time.Now().UTC())
		return eris.Wrapf(err, "sqlite: update stock for %s", user)
	})
}

func (s *SQLiteStore) AppendElimination(ctx context.Context, user string, elim model.EliminationEvent, stockAfter float64) error {
	if elim.ID == "" {
		elim.ID = uuid.New().String()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO eliminations (`+eliminationColumnsWithUser+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			eliminationArgs(user, elim)...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert elimination for %s", user)
		}
		_, err := tx.ExecContext(ctx, sqliteUpsertStock, user, stockAfter, time.Now().UTC())
		return eris.Wrapf(err, "sqlite: update stock for %s", user)
	})
}

func (s *SQLiteStore) Meals(ctx context.Context, user string) ([]model.MealEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE user_name = ? ORDER BY rowid`, user)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query meals for %s", user)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MealEvent
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate meals")
}

func (s *SQLiteStore) Eliminations(ctx context.Context, user string) ([]model.EliminationEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eliminationColumns+` FROM eliminations WHERE user_name = ? ORDER BY rowid`, user)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query eliminations for %s", user)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.EliminationEvent
	for rows.Next() {
		e, err := scanElimination(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate eliminations")
}

func (s *SQLiteStore) Stock(ctx context.Context, user string) (float64, error) {
	var stock float64
	err := s.db.QueryRowContext(ctx, `SELECT stock_g FROM users WHERE name = ?`, user).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: get stock for %s", user)
	}
	return stock, nil
}

func (s *SQLiteStore) SetStock(ctx context.Context, user string, stock float64) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertStock, user, stock, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set stock for %s", user)
}

func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM users ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list users")
	}
	defer rows.Close() //nolint:errcheck

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user")
		}
		users = append(users, u)
	}
	return users, eris.Wrap(rows.Err(), "sqlite: iterate users")
}

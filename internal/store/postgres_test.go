package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gutlog/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendMeal(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	meal := sampleMeal("m1", at(1, 8, 0), 60)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO meals").
		WithArgs("m1", "alice", "2024-03-01 08:00", "bibimbap", 250.0, 60.0, "lunch", 2, 1.0, 480.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", 160.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.AppendMeal(context.Background(), "alice", meal, 160))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendMeal_RollsBackOnStockFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO meals").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.AppendMeal(context.Background(), "alice", sampleMeal("m1", at(1, 8, 0), 60), 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update stock for alice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendElimination(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	elim := sampleElimination("e1", at(2, 7, 15), 70)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO eliminations").
		WithArgs("e1", "alice", "2024-03-02 07:15", 70.0, "2024-03-02 06:45", 30, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.AppendElimination(context.Background(), "alice", elim, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Meals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "ts", "food_label", "personal_mass_g", "predicted_excretion_g",
		"meal_type", "diner_count", "consumption_ratio", "calories_kcal",
	}).
		AddRow("m1", "2024-03-01 08:00", "bibimbap", 250.0, 60.0, "lunch", 2, 1.0, 480.0).
		AddRow("m2", "2024-03-01 12:30", "bibimbap", 250.0, 40.0, "lunch", 2, 1.0, 480.0)
	mock.ExpectQuery("SELECT .+ FROM meals WHERE user_name = \\$1 ORDER BY seq").
		WithArgs("alice").
		WillReturnRows(rows)

	meals, err := s.Meals(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assertSameMeal(t, sampleMeal("m1", at(1, 8, 0), 60), meals[0])
	assertSameMeal(t, sampleMeal("m2", at(1, 12, 30), 40), meals[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Meals_BadTimestamp(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "ts", "food_label", "personal_mass_g", "predicted_excretion_g",
		"meal_type", "diner_count", "consumption_ratio", "calories_kcal",
	}).AddRow("m1", "not a time", "rice", 1.0, 1.0, "", 1, 1.0, 0.0)
	mock.ExpectQuery("SELECT .+ FROM meals").WithArgs("alice").WillReturnRows(rows)

	_, err := s.Meals(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse timestamp")
}

func TestPostgresStore_Eliminations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "ts", "discharged_mass_g", "predicted_at", "error_minutes", "full_discharge",
	}).
		AddRow("e1", "2024-03-02 07:15", 70.0, "2024-03-02 06:45", int64(30), false).
		AddRow("e2", "2024-03-03 09:00", 0.0, nil, nil, true)
	mock.ExpectQuery("SELECT .+ FROM eliminations WHERE user_name = \\$1 ORDER BY seq").
		WithArgs("alice").
		WillReturnRows(rows)

	elims, err := s.Eliminations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, elims, 2)
	assertSameElimination(t, sampleElimination("e1", at(2, 7, 15), 70), elims[0])
	assert.Nil(t, elims[1].PredictedAt)
	assert.Nil(t, elims[1].ErrorMinutes)
	assert.True(t, elims[1].Full)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stock(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT stock_g FROM users").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"stock_g"}).AddRow(42.5))

	stock, err := s.Stock(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 42.5, stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stock_UnknownUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT stock_g FROM users").
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	stock, err := s.Stock(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, stock)
}

func TestPostgresStore_SetStock(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO users .+ ON CONFLICT").
		WithArgs("alice", 12.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetStock(context.Background(), "alice", 12))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Users(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT name FROM users ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("alice").AddRow("bob"))

	users, err := s.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	h := History{
		User:         "alice",
		Meals:        []model.MealEvent{sampleMeal("m1", at(1, 8, 0), 60), sampleMeal("m2", at(1, 12, 0), 40)},
		Eliminations: []model.EliminationEvent{sampleElimination("e1", at(2, 7, 0), 70)},
		Stock:        30,
	}

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"meals"}, splitColumns(mealColumnsWithUser)).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"eliminations"}, splitColumns(eliminationColumnsWithUser)).WillReturnResult(1)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", 30.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.ImportHistory(context.Background(), h))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportHistory_CopyFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	h := History{User: "alice", Meals: []model.MealEvent{sampleMeal("m1", at(1, 8, 0), 60)}}

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"meals"}, splitColumns(mealColumnsWithUser)).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := s.ImportHistory(context.Background(), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO meals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsBulk(t *testing.T) {
	var _ Bulk = (*PostgresStore)(nil)
	var _ Bulk = (*FileStore)(nil)
}

func TestSplitColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "user_name", "ts", "discharged_mass_g", "predicted_at", "error_minutes", "full_discharge"},
		splitColumns(eliminationColumnsWithUser))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gutlog/internal/store"
)

// setupCLI points the config at a file store in a temp dir and returns
// the data file path.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	path := filepath.Join(dir, "data.json")
	t.Setenv("GUTLOG_STORE_DRIVER", "file")
	t.Setenv("GUTLOG_STORE_PATH", path)
	t.Setenv("GUTLOG_LOG_LEVEL", "error")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"meal", "elimination", "status", "rebuild", "nutrients", "serve", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "gutlog", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("user"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("json"))
}

func TestCommandFlags(t *testing.T) {
	assert.NotNil(t, mealAddCmd.Flags().Lookup("food"))
	assert.NotNil(t, mealAddCmd.Flags().Lookup("mass"))
	assert.Equal(t, "1", mealAddCmd.Flags().Lookup("diners").DefValue)
	assert.NotNil(t, mealAnalyzeCmd.Flags().Lookup("record"))
	assert.NotNil(t, eliminationRecordCmd.Flags().Lookup("grams"))
	assert.Equal(t, "false", rebuildCmd.Flags().Lookup("all").DefValue)
	assert.Equal(t, "0", serveCmd.Flags().Lookup("port").DefValue)
	assert.NotNil(t, migrateCmd.Flags().Lookup("from-driver"))
}

func TestCLI_MealEliminationStatus(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "meal", "add", "--user", "alice", "--json",
		"--food", "rice", "--mass", "400", "--at", "2024-03-01 08:00")
	require.NoError(t, err, out)

	var meal struct {
		StockG float64 `json:"stock_g"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &meal))
	assert.InDelta(t, 82.4, meal.StockG, 1e-9)

	out, err = execute(t, "elimination", "record", "--user", "alice", "--json",
		"--grams", "30", "--at", "2024-03-02 08:00")
	require.NoError(t, err, out)

	var elim struct {
		RemovedG float64 `json:"removed_g"`
		StockG   float64 `json:"stock_g"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &elim))
	assert.InDelta(t, 30, elim.RemovedG, 1e-9)
	assert.InDelta(t, 52.4, elim.StockG, 1e-9)

	out, err = execute(t, "status", "--user", "alice", "--json")
	require.NoError(t, err, out)

	var status struct {
		User             string  `json:"user"`
		StockG           float64 `json:"stock_g"`
		InsufficientData bool    `json:"insufficient_data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "alice", status.User)
	assert.InDelta(t, 52.4, status.StockG, 1e-9)
	assert.True(t, status.InsufficientData)

	out, err = execute(t, "elimination", "reset", "--user", "alice", "--json", "--at", "2024-03-02 20:00")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &elim))
	assert.InDelta(t, 52.4, elim.RemovedG, 1e-9)
	assert.Zero(t, elim.StockG)
}

func TestCLI_RejectsBadInput(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "elimination", "record", "--user", "alice", "--json", "--grams", "-1", "--at", "")
	assert.Error(t, err)

	_, err = execute(t, "meal", "add", "--user", "alice", "--json",
		"--food", "rice", "--mass", "100", "--meal-type", "brunch", "--at", "")
	assert.Error(t, err)

	_, err = execute(t, "meal", "add", "--user", "alice", "--json",
		"--food", "rice", "--mass", "100", "--meal-type", "", "--at", "last tuesday")
	assert.Error(t, err)
}

func TestCLI_Rebuild(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "meal", "add", "--user", "bob", "--json",
		"--food", "rice", "--mass", "400", "--meal-type", "", "--at", "2024-03-01 08:00")
	require.NoError(t, err)

	out, err := execute(t, "rebuild", "--user", "bob", "--json", "--all=false")
	require.NoError(t, err, out)

	var results []struct {
		User     string `json:"user"`
		Repaired bool   `json:"repaired"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].User)
	assert.False(t, results[0].Repaired)

	out, err = execute(t, "rebuild", "--json", "--all")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 1)
}

func TestCLI_NutrientsLookup(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "nutrients", "lookup", "unobtainium", "--json")
	require.NoError(t, err, out)

	var l struct {
		Found bool `json:"found"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	assert.False(t, l.Found)
}

func TestCLI_MigrateCopiesFileIntoSQLite(t *testing.T) {
	path := setupCLI(t)

	_, err := execute(t, "meal", "add", "--user", "carol", "--json",
		"--food", "rice", "--mass", "200", "--meal-type", "", "--at", "2024-03-01 08:00")
	require.NoError(t, err)

	dsn := filepath.Join(filepath.Dir(path), "gutlog.db")
	t.Setenv("GUTLOG_STORE_DRIVER", "sqlite")
	t.Setenv("GUTLOG_STORE_DATABASE_URL", dsn)

	out, err := execute(t, "migrate", "--from-driver", "file", "--from-path", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Copied 1 users")

	st, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	meals, err := st.Meals(context.Background(), "carol")
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "rice", meals[0].FoodLabel)
}

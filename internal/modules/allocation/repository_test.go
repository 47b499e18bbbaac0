package allocation

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalancer/internal/database"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestReplaceAllAndGetAll(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.ReplaceAll(map[string]float64{
		" aapl ": 0.6,
		"BND":    0.4,
	})
	require.NoError(t, err)

	weights, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 0.6, "BND": 0.4}, weights)
}

func TestReplaceAllSwapsWholeSet(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.ReplaceAll(map[string]float64{"AAPL": 1.0}))
	require.NoError(t, repo.ReplaceAll(map[string]float64{"BND": 1.0}))

	weights, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BND": 1.0}, weights)
}

func TestReplaceAllRejectsNegativeWeight(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.ReplaceAll(map[string]float64{"AAPL": 1.0}))

	err := repo.ReplaceAll(map[string]float64{"BND": -0.1})
	assert.Error(t, err)

	// Rejected replace must leave the old set untouched.
	weights, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 1.0}, weights)
}

func TestReplaceAllRejectsEmptyTicker(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.ReplaceAll(map[string]float64{"  ": 0.5})
	assert.Error(t, err)
}

func TestGetAllocation(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.ReplaceAll(map[string]float64{"AAPL": 0.7, "BND": 0.3}))

	alloc, err := repo.GetAllocation()
	require.NoError(t, err)
	assert.Equal(t, 0.7, alloc.Weight("AAPL"))
	assert.Equal(t, 0.0, alloc.Weight("MSFT"))
	assert.Equal(t, []string{"AAPL", "BND"}, alloc.Tickers())
}

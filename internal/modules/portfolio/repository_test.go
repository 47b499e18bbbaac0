package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalancer/internal/database"
	"github.com/aristath/rebalancer/internal/domain"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestCreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)

	created, err := repo.Create("main", 1500.0)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Name)
	assert.Equal(t, 1500.0, got.Cash)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := setupTestRepo(t)

	first, err := repo.Create("first", 0)
	require.NoError(t, err)
	second, err := repo.Create("second", 0)
	require.NoError(t, err)

	records, err := repo.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}

func TestReplacePositionsNormalizes(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 100.0)
	require.NoError(t, err)

	err = repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: " aapl ", AssetType: "stock", Quantity: 10, Price: 150},
		{Ticker: "BND", AssetType: "", Quantity: 5, Price: 80},
	}, nil)
	require.NoError(t, err)

	positions, err := repo.GetPositions(rec.ID)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	// Ordered by ticker, normalized on the way in.
	assert.Equal(t, "AAPL", positions[0].Ticker)
	assert.Equal(t, "STOCK", positions[0].AssetType)
	assert.Equal(t, "BND", positions[1].Ticker)
	assert.Equal(t, domain.AssetTypeUnknown, positions[1].AssetType)
}

func TestReplacePositionsUpdatesCash(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 100.0)
	require.NoError(t, err)

	cash := 42.5
	err = repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "AAPL", AssetType: "STOCK", Quantity: 1, Price: 150},
	}, &cash)
	require.NoError(t, err)

	got, err := repo.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, got.Cash)
}

func TestReplacePositionsReplacesOldSet(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 0)
	require.NoError(t, err)

	require.NoError(t, repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "AAPL", AssetType: "STOCK", Quantity: 1, Price: 150},
		{Ticker: "MSFT", AssetType: "STOCK", Quantity: 2, Price: 300},
	}, nil))

	require.NoError(t, repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "BND", AssetType: "BOND", Quantity: 3, Price: 80},
	}, nil))

	positions, err := repo.GetPositions(rec.ID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BND", positions[0].Ticker)
}

func TestReplacePositionsRejectsEmptyTicker(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 0)
	require.NoError(t, err)

	err = repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "  ", AssetType: "STOCK", Quantity: 1, Price: 10},
	}, nil)
	assert.Error(t, err)

	// Failed replace must not commit a partial set.
	positions, err := repo.GetPositions(rec.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestReplacePositionsMissingPortfolio(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.ReplacePositions(999, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesPositions(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 0)
	require.NoError(t, err)
	require.NoError(t, repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "AAPL", AssetType: "STOCK", Quantity: 1, Price: 150},
	}, nil))

	require.NoError(t, repo.Delete(rec.ID))

	_, err = repo.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	positions, err := repo.GetPositions(rec.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	assert.ErrorIs(t, repo.Delete(999), ErrNotFound)
}

func TestSetCash(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 10.0)
	require.NoError(t, err)

	require.NoError(t, repo.SetCash(rec.ID, 250.0))

	got, err := repo.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, got.Cash)

	assert.ErrorIs(t, repo.SetCash(999, 1.0), ErrNotFound)
}

func TestLoadBuildsDomainPortfolio(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create("main", 500.0)
	require.NoError(t, err)
	require.NoError(t, repo.ReplacePositions(rec.ID, []domain.Position{
		{Ticker: "AAPL", AssetType: "STOCK", Quantity: 10, Price: 150},
		{Ticker: "BND", AssetType: "BOND", Quantity: 5, Price: 80},
	}, nil))

	pf, err := repo.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, pf.Cash)
	require.Len(t, pf.Positions, 2)
	assert.InDelta(t, 10.0, pf.Positions[0].Quantity, 1e-9)
}

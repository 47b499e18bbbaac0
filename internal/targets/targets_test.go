package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalancer/internal/domain"
)

func TestTargetAllocation_WeightAbsentIsZero(t *testing.T) {
	a := New(map[string]float64{"AAA": 0.6, "BBB": 0.4})

	assert.Equal(t, 0.6, a.Weight("AAA"))
	assert.Equal(t, 0.4, a.Weight("BBB"))
	assert.Equal(t, 0.0, a.Weight("CCC"))
}

func TestTargetAllocation_CopiesInput(t *testing.T) {
	weights := map[string]float64{"AAA": 1.0}
	a := New(weights)
	weights["AAA"] = 0.5

	assert.Equal(t, 1.0, a.Weight("AAA"))
}

func TestTargetAllocation_TickersSorted(t *testing.T) {
	a := New(map[string]float64{"ZZZ": 0.1, "AAA": 0.2, "MMM": 0.3})
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, a.Tickers())
}

func TestBuildDefaults_EqualWeights(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "aaa", AssetType: "stock", Quantity: 1, Price: 10},
		{Ticker: "BBB", AssetType: "STOCK", Quantity: 2, Price: 20},
		{Ticker: "CCC", AssetType: "FII", Quantity: 3, Price: 30},
	}

	defaults, err := BuildDefaults(positions)
	require.NoError(t, err)

	assert.Equal(t, 0.5, defaults.ByType["STOCK"])
	assert.Equal(t, 0.5, defaults.ByType["FII"])

	assert.InDelta(t, 0.25, defaults.ByTicker.Weight("AAA"), 1e-12)
	assert.InDelta(t, 0.25, defaults.ByTicker.Weight("BBB"), 1e-12)
	assert.InDelta(t, 0.5, defaults.ByTicker.Weight("CCC"), 1e-12)

	assert.Equal(t, 0.5, defaults.WithinTypeByTicker["AAA"])
	assert.Equal(t, 1.0, defaults.WithinTypeByTicker["CCC"])
	assert.Equal(t, "STOCK", defaults.AssetTypeByTicker["AAA"])
}

func TestBuildDefaults_WeightsSumToOne(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "A1", AssetType: "STOCK"},
		{Ticker: "A2", AssetType: "STOCK"},
		{Ticker: "A3", AssetType: "STOCK"},
		{Ticker: "B1", AssetType: "FII"},
		{Ticker: "B2", AssetType: "FII"},
		{Ticker: "C1", AssetType: "BOND"},
	}

	defaults, err := BuildDefaults(positions)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range defaults.ByTicker.Weights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestBuildDefaults_ConflictingAssetTypes(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "AAA", AssetType: "STOCK"},
		{Ticker: "AAA", AssetType: "FII"},
	}

	_, err := BuildDefaults(positions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple asset types")
}

func TestBuildDefaults_EmptyAssetTypeMapsToUnknown(t *testing.T) {
	positions := []domain.Position{{Ticker: "AAA", AssetType: "  "}}

	defaults, err := BuildDefaults(positions)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetTypeUnknown, defaults.AssetTypeByTicker["AAA"])
}

func TestBuildDefaults_Empty(t *testing.T) {
	defaults, err := BuildDefaults(nil)
	require.NoError(t, err)
	assert.Zero(t, defaults.ByTicker.Len())
	assert.Empty(t, defaults.ByType)
}

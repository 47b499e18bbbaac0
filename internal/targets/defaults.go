package targets

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/rebalancer/internal/domain"
)

// DefaultTargets is an automatically derived target set: asset types weighted
// equally, and tickers weighted equally within each type.
type DefaultTargets struct {
	// ByTicker holds the total weight per ticker; weights sum to 1.
	ByTicker TargetAllocation
	// ByType holds the weight per asset type; weights sum to 1.
	ByType map[string]float64
	// WithinTypeByTicker holds each ticker's weight inside its own type.
	WithinTypeByTicker map[string]float64
	// AssetTypeByTicker records the type each ticker was classified under.
	AssetTypeByTicker map[string]string
}

// BuildDefaults derives an equal-weight DefaultTargets from a set of
// positions. A ticker appearing under two different asset types is an error.
func BuildDefaults(positions []domain.Position) (DefaultTargets, error) {
	tickersByType := make(map[string][]string)
	assetTypeByTicker := make(map[string]string)

	for _, p := range positions {
		ticker := domain.NormalizeTicker(p.Ticker)
		assetType := domain.NormalizeAssetType(p.AssetType)

		if prev, ok := assetTypeByTicker[ticker]; ok && prev != assetType {
			return DefaultTargets{}, fmt.Errorf(
				"ticker %s appears in multiple asset types: %s vs %s", ticker, prev, assetType)
		}
		assetTypeByTicker[ticker] = assetType

		if !contains(tickersByType[assetType], ticker) {
			tickersByType[assetType] = append(tickersByType[assetType], ticker)
		}
	}

	types := make([]string, 0, len(tickersByType))
	for at := range tickersByType {
		types = append(types, at)
	}
	sort.Strings(types)

	if len(types) == 0 {
		return DefaultTargets{
			ByTicker:           New(nil),
			ByType:             map[string]float64{},
			WithinTypeByTicker: map[string]float64{},
			AssetTypeByTicker:  map[string]string{},
		}, nil
	}

	typeWeight := 1.0 / float64(len(types))
	byType := make(map[string]float64, len(types))
	totalWeights := make(map[string]float64)
	withinWeights := make(map[string]float64)

	for _, at := range types {
		byType[at] = typeWeight

		tickers := append([]string(nil), tickersByType[at]...)
		sort.Strings(tickers)
		within := 1.0 / float64(len(tickers))
		for _, t := range tickers {
			withinWeights[t] = within
			totalWeights[t] = typeWeight * within
		}
	}

	// Renormalize away float drift so the total weights sum to exactly 1.
	values := make([]float64, 0, len(totalWeights))
	for _, v := range totalWeights {
		values = append(values, v)
	}
	if sum := floats.Sum(values); len(totalWeights) > 0 && math.Abs(sum-1.0) > domain.Epsilon {
		for t := range totalWeights {
			totalWeights[t] /= sum
		}
	}

	return DefaultTargets{
		ByTicker:           New(totalWeights),
		ByType:             byType,
		WithinTypeByTicker: withinWeights,
		AssetTypeByTicker:  assetTypeByTicker,
	}, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

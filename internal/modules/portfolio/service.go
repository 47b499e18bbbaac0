package portfolio

import (
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/loaders"
	"github.com/aristath/rebalancer/internal/targets"
)

// Summarize marks a portfolio to market against a price sheet and reports
// current vs target weight per position. Positions missing from the sheet use
// their stale reference price and are listed in FallbackPrices.
func Summarize(pf domain.Portfolio, target targets.TargetAllocation, sheet map[string]float64) (Summary, error) {
	priceMap, fallback, err := loaders.ResolvePrices(pf.Positions, sheet)
	if err != nil {
		return Summary{}, err
	}

	values := make([]float64, 0, len(pf.Positions))
	for _, p := range pf.Positions {
		if p.Quantity <= 0 {
			continue
		}
		values = append(values, p.Quantity*priceMap[p.Ticker])
	}
	totalValue := floats.Sum(values) + pf.Cash

	out := Summary{
		TotalValue:     totalValue,
		Cash:           pf.Cash,
		FallbackPrices: fallback,
	}
	if totalValue > 0 {
		out.CashWeight = pf.Cash / totalValue
	}

	for _, p := range pf.Positions {
		px := priceMap[p.Ticker]
		mv := p.Quantity * px

		weight := 0.0
		if totalValue > 0 {
			weight = mv / totalValue
		}
		tw := target.Weight(p.Ticker)

		out.Positions = append(out.Positions, PositionValuation{
			Ticker:        p.Ticker,
			AssetType:     p.AssetType,
			Quantity:      p.Quantity,
			Price:         px,
			MarketValue:   mv,
			CurrentWeight: weight,
			TargetWeight:  tw,
			Deviation:     weight - tw,
		})
	}

	return out, nil
}

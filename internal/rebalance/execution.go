package rebalance

import (
	"sort"

	"github.com/aristath/rebalancer/internal/domain"
)

// ApplyTrades settles a trade plan against a portfolio and returns the
// post-trade portfolio. Trades are applied strictly in list order, so the
// engine's SELL-then-BUY ordering frees cash before it is committed to buys;
// reordering the list can turn a feasible plan into an InsufficientCashError.
//
// A BUY that opens a new ticker resolves its asset type from
// assetTypeByTicker, falling back to defaultAssetType; with neither the
// settlement fails. The input portfolio is never mutated.
func ApplyTrades(pf domain.Portfolio, trades []domain.Trade, assetTypeByTicker map[string]string, defaultAssetType string) (domain.Portfolio, error) {
	posByTicker := make(map[string]domain.Position, len(pf.Positions))
	for _, p := range pf.Positions {
		posByTicker[p.Ticker] = p
	}
	cash := pf.Cash

	for _, t := range trades {
		notional := t.Notional()

		switch t.Side {
		case domain.SideSell:
			p, ok := posByTicker[t.Ticker]
			if !ok {
				return domain.Portfolio{}, &UnknownPositionError{Ticker: t.Ticker}
			}
			if t.Quantity > p.Quantity+domain.Epsilon {
				return domain.Portfolio{}, &OversellError{
					Ticker:    t.Ticker,
					Requested: t.Quantity,
					Held:      p.Quantity,
				}
			}

			cash += notional
			newQty := p.Quantity - t.Quantity
			if newQty <= domain.Epsilon {
				delete(posByTicker, t.Ticker)
			} else {
				p.Quantity = newQty
				p.Price = t.Price
				posByTicker[t.Ticker] = p
			}

		case domain.SideBuy:
			if notional > cash+domain.Epsilon {
				return domain.Portfolio{}, &InsufficientCashError{
					Ticker: t.Ticker,
					Need:   notional,
					Have:   cash,
				}
			}

			cash -= notional
			if p, ok := posByTicker[t.Ticker]; ok {
				p.Quantity += t.Quantity
				p.Price = t.Price
				posByTicker[t.Ticker] = p
			} else {
				assetType, ok := assetTypeByTicker[t.Ticker]
				if !ok {
					assetType = defaultAssetType
				}
				if assetType == "" {
					return domain.Portfolio{}, &MissingAssetTypeError{Ticker: t.Ticker}
				}
				posByTicker[t.Ticker] = domain.Position{
					Ticker:    t.Ticker,
					AssetType: assetType,
					Quantity:  t.Quantity,
					Price:     t.Price,
				}
			}

		default:
			return domain.Portfolio{}, &InvalidTradeSideError{Side: t.Side}
		}
	}

	positions := make([]domain.Position, 0, len(posByTicker))
	for _, p := range posByTicker {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Ticker < positions[j].Ticker
	})

	return domain.Portfolio{Positions: positions, Cash: cash}, nil
}

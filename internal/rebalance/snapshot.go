package rebalance

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

// snapshot is the valuation state of one rebalance run: held quantities,
// current and target values, and the per-ticker deltas derived from them.
// The sell leg transforms a snapshot into a new one, so the buy leg always
// reads post-sell state without the two legs sharing mutable maps.
type snapshot struct {
	cash         float64
	quantity     map[string]float64
	currentValue map[string]float64
	targetValue  map[string]float64
	delta        map[string]float64
	assetType    map[string]string
}

// buildSnapshot values every held position against the supplied prices and
// computes target values and deltas over the universe of held ∪ targeted
// tickers. Prices are resolved lazily: only tickers actually held with
// positive quantity are required here.
func buildSnapshot(pf domain.Portfolio, target targets.TargetAllocation, prices domain.PriceMap) (*snapshot, error) {
	s := &snapshot{
		cash:         pf.Cash,
		quantity:     pf.QuantityByTicker(),
		currentValue: make(map[string]float64),
		targetValue:  make(map[string]float64),
		delta:        make(map[string]float64),
		assetType:    pf.AssetTypeByTicker(),
	}

	values := make([]float64, 0, len(s.quantity))
	for t, qty := range s.quantity {
		if qty <= 0 {
			continue
		}
		px, err := resolvePrice(prices, t)
		if err != nil {
			return nil, err
		}
		s.currentValue[t] = qty * px
		values = append(values, qty*px)
	}
	totalValue := floats.Sum(values) + s.cash

	for t := range s.currentValue {
		s.targetValue[t] = totalValue * target.Weight(t)
	}
	for _, t := range target.Tickers() {
		s.targetValue[t] = totalValue * target.Weight(t)
	}
	for t, tv := range s.targetValue {
		s.delta[t] = tv - s.currentValue[t]
	}

	return s, nil
}

// clone deep-copies the snapshot so one leg's mutations never alias another's
// view of the state.
func (s *snapshot) clone() *snapshot {
	return &snapshot{
		cash:         s.cash,
		quantity:     copyFloats(s.quantity),
		currentValue: copyFloats(s.currentValue),
		targetValue:  copyFloats(s.targetValue),
		delta:        copyFloats(s.delta),
		assetType:    copyStrings(s.assetType),
	}
}

// recordSell books a sell of qty units at px: cash grows by the notional, the
// ticker's value and quantity shrink, and its delta is recomputed so a later
// buy leg sees the post-sell shortfall.
func (s *snapshot) recordSell(ticker string, qty, px float64) {
	notional := qty * px
	s.cash += notional
	s.currentValue[ticker] -= notional
	s.quantity[ticker] -= qty
	s.delta[ticker] = s.targetValue[ticker] - s.currentValue[ticker]
}

// underweightTickers returns tickers with positive delta, sorted for
// deterministic iteration.
func (s *snapshot) underweightTickers() []string {
	var out []string
	for t, d := range s.delta {
		if d > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// overweightTickers returns tickers with negative delta ordered most negative
// (most overweight) first, ties broken by ticker.
func (s *snapshot) overweightTickers() []string {
	var out []string
	for t, d := range s.delta {
		if d < 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := s.delta[out[i]], s.delta[out[j]]
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	return out
}

// assetTypeOf returns the recorded asset type for a ticker, defaulting to
// UNKNOWN for tickers the portfolio never held.
func (s *snapshot) assetTypeOf(ticker string) string {
	if at, ok := s.assetType[ticker]; ok {
		return at
	}
	return domain.AssetTypeUnknown
}

func copyFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

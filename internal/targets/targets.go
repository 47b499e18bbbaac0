package targets

import "sort"

// TargetAllocation maps tickers to desired fractional portfolio weights.
// Tickers are expected pre-normalized by the caller; the type performs no
// normalization of its own. Weights need not sum to 1 — the engine scales
// total value by whatever weight it is given, and any shortfall stays in cash.
type TargetAllocation struct {
	weights map[string]float64
}

// New builds a TargetAllocation from a ticker → weight map. The map is copied.
func New(weights map[string]float64) TargetAllocation {
	w := make(map[string]float64, len(weights))
	for t, v := range weights {
		w[t] = v
	}
	return TargetAllocation{weights: w}
}

// Weight returns the stored weight for a ticker, or 0 if absent.
func (a TargetAllocation) Weight(ticker string) float64 {
	return a.weights[ticker]
}

// Tickers returns all targeted tickers in sorted order.
func (a TargetAllocation) Tickers() []string {
	out := make([]string, 0, len(a.weights))
	for t := range a.weights {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Weights returns a copy of the underlying ticker → weight map.
func (a TargetAllocation) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for t, v := range a.weights {
		out[t] = v
	}
	return out
}

// Len returns the number of targeted tickers.
func (a TargetAllocation) Len() int {
	return len(a.weights)
}

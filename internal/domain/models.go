package domain

import "strings"

// Epsilon is the tolerance used for all monetary and quantity comparisons.
// Values within Epsilon of zero are treated as zero.
const Epsilon = 1e-12

// AssetTypeUnknown classifies positions whose asset type was never supplied.
const AssetTypeUnknown = "UNKNOWN"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position is a single holding: a quantity of one ticker plus the last
// reference price known for it. The price is a fallback only; whenever a live
// price map is supplied it takes precedence.
type Position struct {
	Ticker    string  `json:"ticker"`
	AssetType string  `json:"asset_type"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// Trade is one buy or sell instruction at a fixed execution price.
type Trade struct {
	Ticker   string  `json:"ticker"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Notional returns the monetary size of the trade.
func (t Trade) Notional() float64 {
	return t.Quantity * t.Price
}

// Portfolio is a set of positions (unique by ticker) plus free cash.
// Engine operations never mutate a Portfolio; they return a new one.
type Portfolio struct {
	Positions []Position `json:"positions"`
	Cash      float64    `json:"cash"`
}

// QuantityByTicker returns held quantities indexed by ticker.
func (p Portfolio) QuantityByTicker() map[string]float64 {
	out := make(map[string]float64, len(p.Positions))
	for _, pos := range p.Positions {
		out[pos.Ticker] = pos.Quantity
	}
	return out
}

// AssetTypeByTicker returns asset types indexed by ticker.
func (p Portfolio) AssetTypeByTicker() map[string]string {
	out := make(map[string]string, len(p.Positions))
	for _, pos := range p.Positions {
		out[pos.Ticker] = pos.AssetType
	}
	return out
}

// PriceMap maps ticker to a positive execution price. It is authoritative for
// every ticker it contains; fallback resolution happens before one is built.
type PriceMap map[string]float64

// NormalizeTicker upper-cases and trims a ticker symbol. The whole system
// operates on normalized tickers.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeAssetType upper-cases and trims an asset type, mapping the empty
// string to AssetTypeUnknown.
func NormalizeAssetType(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" {
		return AssetTypeUnknown
	}
	return t
}

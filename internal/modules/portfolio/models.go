package portfolio

import "github.com/aristath/rebalancer/internal/domain"

// Record is a stored portfolio row.
type Record struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Cash      float64 `json:"cash"`
	CreatedAt string  `json:"created_at"`
}

// PositionValuation is one position marked to market for display.
type PositionValuation struct {
	Ticker        string  `json:"ticker"`
	AssetType     string  `json:"asset_type"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	MarketValue   float64 `json:"market_value"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
	Deviation     float64 `json:"deviation"`
}

// Summary is a portfolio valuation snapshot: every position marked to market
// plus totals, with current vs target weights.
type Summary struct {
	TotalValue     float64             `json:"total_value"`
	Cash           float64             `json:"cash"`
	CashWeight     float64             `json:"cash_weight"`
	Positions      []PositionValuation `json:"positions"`
	FallbackPrices []string            `json:"fallback_prices,omitempty"`
}

// UpdatePositionsRequest replaces a portfolio's positions and optionally its
// cash balance.
type UpdatePositionsRequest struct {
	Positions []domain.Position `json:"positions"`
	Cash      *float64          `json:"cash,omitempty"`
}

// CreateRequest creates a new portfolio.
type CreateRequest struct {
	Name string  `json:"name"`
	Cash float64 `json:"cash"`
}

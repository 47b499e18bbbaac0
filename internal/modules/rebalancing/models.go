package rebalancing

import "github.com/aristath/rebalancer/internal/domain"

// Request describes one rebalance invocation. The portfolio comes either from
// storage (PortfolioID) or inline (Positions + Cash); targets and prices come
// either inline or from the stored targets and the cached price sheet.
type Request struct {
	PortfolioID *int64            `json:"portfolio_id,omitempty"`
	Positions   []domain.Position `json:"positions,omitempty"`
	Cash        *float64          `json:"cash,omitempty"`

	Weights map[string]float64 `json:"weights,omitempty"`
	Prices  map[string]float64 `json:"prices,omitempty"`

	Mode             string  `json:"mode"`
	AllowFractional  bool    `json:"allow_fractional"`
	MinTradeNotional float64 `json:"min_trade_notional"`

	// Apply settles the generated plan and, for stored portfolios, persists
	// the post-trade state.
	Apply bool `json:"apply"`
}

// TradeView is a trade with its notional spelled out for consumers.
type TradeView struct {
	Ticker   string      `json:"ticker"`
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"quantity"`
	Price    float64     `json:"price"`
	Notional float64     `json:"notional"`
}

// Response is the outcome of one rebalance invocation.
type Response struct {
	Trades         []TradeView       `json:"trades"`
	CashBefore     float64           `json:"cash_before"`
	CashAfter      float64           `json:"cash_after"`
	FallbackPrices []string          `json:"fallback_prices,omitempty"`
	Applied        bool              `json:"applied"`
	PortfolioAfter *domain.Portfolio `json:"portfolio_after,omitempty"`
}

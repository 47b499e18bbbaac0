package rebalance

import (
	"fmt"

	"github.com/aristath/rebalancer/internal/domain"
)

// InvalidModeError reports an unrecognized rebalance mode string.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q: must be one of BUY, SELL, TRADE", e.Mode)
}

// MissingPriceError reports a ticker the run needed a price for but the price
// map did not cover.
type MissingPriceError struct {
	Ticker string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for ticker: %s", e.Ticker)
}

// InvalidPriceError reports a non-positive price in the price map.
type InvalidPriceError struct {
	Ticker string
	Price  float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price must be > 0 for ticker %s, got %v", e.Ticker, e.Price)
}

// UnknownPositionError reports a SELL against a ticker the portfolio does not
// hold.
type UnknownPositionError struct {
	Ticker string
}

func (e *UnknownPositionError) Error() string {
	return fmt.Sprintf("cannot SELL %s: position does not exist", e.Ticker)
}

// OversellError reports a SELL whose quantity exceeds the held quantity.
type OversellError struct {
	Ticker    string
	Requested float64
	Held      float64
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("cannot SELL %s: quantity %v exceeds position quantity %v",
		e.Ticker, e.Requested, e.Held)
}

// InsufficientCashError reports a BUY whose notional exceeds available cash.
type InsufficientCashError struct {
	Ticker string
	Need   float64
	Have   float64
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("cannot BUY %s: not enough cash (need %v, have %v)",
		e.Ticker, e.Need, e.Have)
}

// MissingAssetTypeError reports a BUY opening a new position with no
// resolvable asset type.
type MissingAssetTypeError struct {
	Ticker string
}

func (e *MissingAssetTypeError) Error() string {
	return fmt.Sprintf("cannot BUY %s: missing asset type for new position", e.Ticker)
}

// InvalidTradeSideError reports a trade whose side is neither BUY nor SELL.
type InvalidTradeSideError struct {
	Side domain.Side
}

func (e *InvalidTradeSideError) Error() string {
	return fmt.Sprintf("invalid trade side: %q", string(e.Side))
}

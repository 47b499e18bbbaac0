package rebalance

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

// Mode selects which legs of the rebalance run: buys only, sells only, or
// sells followed by buys.
type Mode string

const (
	ModeBuy   Mode = "BUY"
	ModeSell  Mode = "SELL"
	ModeTrade Mode = "TRADE"
)

// ParseMode normalizes and validates a mode string (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeBuy, ModeSell, ModeTrade:
		return m, nil
	default:
		return "", &InvalidModeError{Mode: s}
	}
}

func (m Mode) sells() bool { return m == ModeSell || m == ModeTrade }
func (m Mode) buys() bool  { return m == ModeBuy || m == ModeTrade }

// Options are the trade-generation constraints.
type Options struct {
	// AllowFractional permits fractional unit quantities. When false,
	// quantities are floored to whole units and leftover cash feeds the
	// top-up pass.
	AllowFractional bool
	// MinTradeNotional discards any computed trade smaller than this.
	MinTradeNotional float64
}

// Result is the trade plan produced by one rebalance run.
type Result struct {
	// Trades holds all SELL trades (most overweight first) followed by all
	// BUY trades. Settlement must preserve this order.
	Trades     []domain.Trade `json:"trades"`
	CashBefore float64        `json:"cash_before"`
	CashAfter  float64        `json:"cash_after"`
}

// Rebalance computes the trades that move a portfolio toward a target
// allocation at the supplied prices. It is a pure function: the portfolio is
// never mutated and the same inputs always produce the same plan.
//
// Prices are checked lazily — only tickers actually priced during the run
// (held with positive quantity, or selected for buying) must be present.
func Rebalance(pf domain.Portfolio, target targets.TargetAllocation, prices domain.PriceMap, mode Mode, opts Options) (Result, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return Result{}, err
	}

	snap, err := buildSnapshot(pf, target, prices)
	if err != nil {
		return Result{}, err
	}

	var trades []domain.Trade

	if mode.sells() {
		sellTrades, next, err := sellLeg(snap, prices, opts)
		if err != nil {
			return Result{}, err
		}
		trades = append(trades, sellTrades...)
		snap = next
	}

	cash := snap.cash
	if mode.buys() {
		buyTrades, cashLeft, err := buyLeg(snap, prices, opts)
		if err != nil {
			return Result{}, err
		}
		trades = append(trades, buyTrades...)
		cash = cashLeft
	}

	return Result{
		Trades:     trades,
		CashBefore: pf.Cash,
		CashAfter:  cash,
	}, nil
}

// sellLeg trims overweight positions, most overweight first. It returns a new
// snapshot carrying the post-sell state for the buy leg.
func sellLeg(snap *snapshot, prices domain.PriceMap, opts Options) ([]domain.Trade, *snapshot, error) {
	next := snap.clone()
	var trades []domain.Trade

	for _, t := range next.overweightTickers() {
		held := next.quantity[t]
		if held <= 0 {
			continue
		}

		px, err := resolvePrice(prices, t)
		if err != nil {
			return nil, nil, err
		}

		qty := -next.delta[t] / px
		if !opts.AllowFractional {
			qty = floorUnits(qty)
		}
		// Never sell more than is held, even when the delta implies more.
		qty = math.Min(qty, held)
		if qty <= 0 {
			continue
		}

		notional := qty * px
		if notional < opts.MinTradeNotional {
			continue
		}

		trades = append(trades, domain.Trade{Ticker: t, Side: domain.SideSell, Quantity: qty, Price: px})
		next.recordSell(t, qty, px)
	}

	return trades, next, nil
}

// topUpIterationLimit bounds the greedy top-up loop. Every iteration spends at
// least the cheapest eligible price, so cashLeft strictly decreases; the cap
// only guards against float pathologies.
const topUpIterationLimit = 1_000_000

// buyLeg allocates available cash to underweight tickers with a two-level
// proportional split — across asset types by aggregate need, then across
// tickers within each type — capping each ticker at its own value shortfall.
// In whole-unit mode, leftover cash from rounding is then spent one unit at a
// time on the relatively most underweight ticker that still fits.
func buyLeg(snap *snapshot, prices domain.PriceMap, opts Options) ([]domain.Trade, float64, error) {
	cash := snap.cash
	buyTickers := snap.underweightTickers()
	if cash <= 0 || len(buyTickers) == 0 {
		return nil, cash, nil
	}

	byType := make(map[string][]string)
	for _, t := range buyTickers {
		at := snap.assetTypeOf(t)
		byType[at] = append(byType[at], t)
	}
	assetTypes := make([]string, 0, len(byType))
	for at := range byType {
		assetTypes = append(assetTypes, at)
	}
	sort.Strings(assetTypes)

	needByType := make(map[string]float64, len(byType))
	needs := make([]float64, 0, len(byType))
	for _, at := range assetTypes {
		need := 0.0
		for _, t := range byType[at] {
			need += math.Max(0, snap.delta[t])
		}
		needByType[at] = need
		needs = append(needs, need)
	}
	totalNeed := floats.Sum(needs)
	if totalNeed <= 0 {
		return nil, cash, nil
	}

	qtyAcc := make(map[string]float64)
	boughtValue := make(map[string]float64)
	var buyOrder []string

	// addBuy books a planned purchase, enforcing the min-notional filter.
	// Returns the notional actually booked (0 when filtered out).
	addBuy := func(t string, qty float64) (float64, error) {
		if qty <= 0 {
			return 0, nil
		}
		px, err := resolvePrice(prices, t)
		if err != nil {
			return 0, err
		}
		notional := qty * px
		if notional < opts.MinTradeNotional {
			return 0, nil
		}
		if _, seen := qtyAcc[t]; !seen {
			buyOrder = append(buyOrder, t)
		}
		qtyAcc[t] += qty
		boughtValue[t] += notional
		return notional, nil
	}

	// Level 1: split all available cash across asset types by aggregate need.
	// Level 2: split each type's budget across its tickers by their need,
	// capped at the ticker's own shortfall. Budgets are computed against the
	// original cash; the remainder is reconciled after the whole pass.
	spentTotal := 0.0
	for _, at := range assetTypes {
		budgetType := cash * (needByType[at] / totalNeed)
		if budgetType <= 0 {
			continue
		}
		needType := needByType[at]
		if needType <= 0 {
			continue
		}

		for _, t := range byType[at] {
			d := math.Max(0, snap.delta[t])
			if d <= 0 {
				continue
			}

			px, err := resolvePrice(prices, t)
			if err != nil {
				return nil, 0, err
			}

			budget := budgetType * (d / needType)
			// Never plan to spend more on a ticker than its own shortfall;
			// what this leaves unspent is picked up by the top-up pass.
			budgetEff := math.Min(budget, d)

			qty := budgetEff / px
			if !opts.AllowFractional {
				qty = floorUnits(qty)
			}
			if qty <= 0 {
				continue
			}

			notional, err := addBuy(t, qty)
			if err != nil {
				return nil, 0, err
			}
			spentTotal += notional
		}
	}

	cashLeft := cash - spentTotal

	// Level 3: greedy top-up with leftover cash, whole-unit mode only.
	if !opts.AllowFractional && cashLeft > 0 {
		for i := 0; i < topUpIterationLimit; i++ {
			best := ""
			bestScore := 0.0

			for _, t := range buyTickers {
				px, err := resolvePrice(prices, t)
				if err != nil {
					return nil, 0, err
				}
				if px > cashLeft {
					continue
				}

				tv := snap.targetValue[t]
				if tv <= 0 {
					continue
				}
				missing := tv - (snap.currentValue[t] + boughtValue[t])
				if missing <= 0 {
					continue
				}

				if score := missing / tv; score > bestScore {
					bestScore = score
					best = t
				}
			}

			if best == "" {
				break
			}

			notional, err := addBuy(best, 1)
			if err != nil {
				return nil, 0, err
			}
			if notional <= 0 {
				break
			}
			cashLeft -= notional
		}
	}

	trades := make([]domain.Trade, 0, len(buyOrder))
	for _, t := range buyOrder {
		px, err := resolvePrice(prices, t)
		if err != nil {
			return nil, 0, err
		}
		trades = append(trades, domain.Trade{Ticker: t, Side: domain.SideBuy, Quantity: qtyAcc[t], Price: px})
	}

	return trades, cashLeft, nil
}

// resolvePrice looks a ticker up in the price map, rejecting absent or
// non-positive prices.
func resolvePrice(prices domain.PriceMap, ticker string) (float64, error) {
	px, ok := prices[ticker]
	if !ok {
		return 0, &MissingPriceError{Ticker: ticker}
	}
	if px <= 0 {
		return 0, &InvalidPriceError{Ticker: ticker, Price: px}
	}
	return px, nil
}

// floorUnits floors to a whole unit count with an epsilon bias, so quantities
// that are whole numbers up to float noise do not round down by one unit.
func floorUnits(x float64) float64 {
	return math.Floor(x + domain.Epsilon)
}

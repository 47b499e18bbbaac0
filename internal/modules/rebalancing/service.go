package rebalancing

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/loaders"
	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/portfolio"
	"github.com/aristath/rebalancer/internal/prices"
	"github.com/aristath/rebalancer/internal/rebalance"
	"github.com/aristath/rebalancer/internal/targets"
)

// ValidationError marks a request that failed input validation before the
// engine ran.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Service resolves a rebalance request's inputs, runs the engine, and
// optionally settles and persists the result.
type Service struct {
	portfolioRepo    *portfolio.Repository
	allocRepo        *allocation.Repository
	prices           *prices.Service
	defaultAssetType string
	log              zerolog.Logger
}

// NewService creates a rebalancing service.
func NewService(
	portfolioRepo *portfolio.Repository,
	allocRepo *allocation.Repository,
	priceSvc *prices.Service,
	defaultAssetType string,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolioRepo:    portfolioRepo,
		allocRepo:        allocRepo,
		prices:           priceSvc,
		defaultAssetType: defaultAssetType,
		log:              log.With().Str("service", "rebalancing").Logger(),
	}
}

// Run executes one rebalance invocation.
func (s *Service) Run(req Request) (Response, error) {
	pf, err := s.resolvePortfolio(req)
	if err != nil {
		return Response{}, err
	}

	target, err := s.resolveTargets(req)
	if err != nil {
		return Response{}, err
	}

	priceMap, fallback, err := s.resolvePrices(req, pf)
	if err != nil {
		return Response{}, err
	}

	mode, err := rebalance.ParseMode(req.Mode)
	if err != nil {
		return Response{}, err
	}

	result, err := rebalance.Rebalance(pf, target, priceMap, mode, rebalance.Options{
		AllowFractional:  req.AllowFractional,
		MinTradeNotional: req.MinTradeNotional,
	})
	if err != nil {
		return Response{}, err
	}

	s.log.Info().
		Str("mode", string(mode)).
		Int("trades", len(result.Trades)).
		Float64("cash_before", result.CashBefore).
		Float64("cash_after", result.CashAfter).
		Msg("Rebalance computed")

	resp := Response{
		Trades:         tradeViews(result.Trades),
		CashBefore:     result.CashBefore,
		CashAfter:      result.CashAfter,
		FallbackPrices: fallback,
	}

	if req.Apply {
		post, err := rebalance.ApplyTrades(pf, result.Trades, pf.AssetTypeByTicker(), s.defaultAssetType)
		if err != nil {
			return Response{}, err
		}
		resp.Applied = true
		resp.PortfolioAfter = &post

		if req.PortfolioID != nil {
			cash := post.Cash
			if err := s.portfolioRepo.ReplacePositions(*req.PortfolioID, post.Positions, &cash); err != nil {
				return Response{}, fmt.Errorf("failed to persist post-trade portfolio: %w", err)
			}
			s.log.Info().Int64("portfolio_id", *req.PortfolioID).Msg("Post-trade portfolio persisted")
		}
	}

	return resp, nil
}

// resolvePortfolio loads the stored portfolio or builds one from the inline
// positions, normalizing tickers and asset types at the boundary.
func (s *Service) resolvePortfolio(req Request) (domain.Portfolio, error) {
	if req.PortfolioID != nil {
		return s.portfolioRepo.Load(*req.PortfolioID)
	}

	if len(req.Positions) == 0 && req.Cash == nil {
		return domain.Portfolio{}, &ValidationError{Msg: "portfolio_id or inline positions/cash required"}
	}

	positions := make([]domain.Position, 0, len(req.Positions))
	seen := make(map[string]bool, len(req.Positions))
	for _, p := range req.Positions {
		ticker := domain.NormalizeTicker(p.Ticker)
		if ticker == "" {
			return domain.Portfolio{}, &ValidationError{Msg: "position with empty ticker"}
		}
		if seen[ticker] {
			return domain.Portfolio{}, &ValidationError{Msg: fmt.Sprintf("duplicate ticker: %s", ticker)}
		}
		if p.Quantity < 0 {
			return domain.Portfolio{}, &ValidationError{Msg: fmt.Sprintf("negative quantity for %s", ticker)}
		}
		seen[ticker] = true
		positions = append(positions, domain.Position{
			Ticker:    ticker,
			AssetType: domain.NormalizeAssetType(p.AssetType),
			Quantity:  p.Quantity,
			Price:     p.Price,
		})
	}

	cash := 0.0
	if req.Cash != nil {
		cash = *req.Cash
	}
	return domain.Portfolio{Positions: positions, Cash: cash}, nil
}

// resolveTargets uses inline weights when given, otherwise the stored target
// set.
func (s *Service) resolveTargets(req Request) (targets.TargetAllocation, error) {
	if req.Weights == nil {
		return s.allocRepo.GetAllocation()
	}

	weights := make(map[string]float64, len(req.Weights))
	for ticker, w := range req.Weights {
		ticker = domain.NormalizeTicker(ticker)
		if ticker == "" {
			return targets.TargetAllocation{}, &ValidationError{Msg: "target with empty ticker"}
		}
		if w < 0 {
			return targets.TargetAllocation{}, &ValidationError{Msg: fmt.Sprintf("negative weight for %s", ticker)}
		}
		weights[ticker] = w
	}
	return targets.New(weights), nil
}

// resolvePrices uses inline prices when given; otherwise it takes the cached
// price sheet and falls back to each position's reference price for tickers
// the sheet misses. The engine itself never falls back — ambiguity is
// resolved here, before it runs.
func (s *Service) resolvePrices(req Request, pf domain.Portfolio) (domain.PriceMap, []string, error) {
	if req.Prices != nil {
		out := make(domain.PriceMap, len(req.Prices))
		for ticker, px := range req.Prices {
			out[domain.NormalizeTicker(ticker)] = px
		}
		return out, nil, nil
	}

	sheet := map[string]float64{}
	if s.prices != nil && s.prices.Configured() {
		var err error
		sheet, err = s.prices.Get()
		if err != nil {
			return nil, nil, fmt.Errorf("price sheet unavailable: %w", err)
		}
	}

	resolved, fallback, err := loaders.ResolvePrices(pf.Positions, sheet)
	if err != nil {
		return nil, nil, &ValidationError{Msg: err.Error()}
	}

	// Targeted-but-unheld tickers price straight from the sheet.
	out := make(domain.PriceMap, len(sheet)+len(resolved))
	for ticker, px := range sheet {
		if px > 0 {
			out[ticker] = px
		}
	}
	for ticker, px := range resolved {
		out[ticker] = px
	}
	return out, fallback, nil
}

func tradeViews(trades []domain.Trade) []TradeView {
	out := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeView{
			Ticker:   t.Ticker,
			Side:     t.Side,
			Quantity: t.Quantity,
			Price:    t.Price,
			Notional: t.Notional(),
		})
	}
	return out
}

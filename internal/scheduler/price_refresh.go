package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/prices"
)

// PriceRefreshJob keeps the cached price sheet warm so rebalance requests
// never block on the upstream sheet.
type PriceRefreshJob struct {
	prices *prices.Service
	log    zerolog.Logger
}

// NewPriceRefreshJob creates a price refresh job.
func NewPriceRefreshJob(priceSvc *prices.Service, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		prices: priceSvc,
		log:    log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name.
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes the price sheet.
func (j *PriceRefreshJob) Run() error {
	if !j.prices.Configured() {
		j.log.Debug().Msg("No price source configured, skipping refresh")
		return nil
	}
	return j.prices.Refresh()
}

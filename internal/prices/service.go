// Package prices owns the cached price sheet. Caching lives here, outside the
// engine, which always receives a plain price map and stays stateless.
package prices

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/loaders"
)

// DefaultTTL is how long a fetched sheet is served before it is considered
// stale.
const DefaultTTL = 15 * time.Minute

// Service fetches and caches the price sheet from a CSV source (file path or
// URL). Safe for concurrent use.
type Service struct {
	source string
	ttl    time.Duration
	log    zerolog.Logger

	mu        sync.RWMutex
	sheet     map[string]float64
	fetchedAt time.Time
}

// NewService creates a price sheet service for the given source. An empty
// source is allowed; Get then fails until a source is configured, and callers
// fall back to request-supplied prices.
func NewService(source string, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		source: source,
		ttl:    ttl,
		log:    log.With().Str("service", "prices").Logger(),
	}
}

// Configured reports whether a price source is set.
func (s *Service) Configured() bool {
	return s.source != ""
}

// Get returns the cached sheet, refreshing it first when stale or never
// fetched. The returned map is a copy.
func (s *Service) Get() (map[string]float64, error) {
	s.mu.RLock()
	fresh := s.sheet != nil && time.Since(s.fetchedAt) < s.ttl
	s.mu.RUnlock()

	if !fresh {
		if err := s.Refresh(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.sheet))
	for t, px := range s.sheet {
		out[t] = px
	}
	return out, nil
}

// Refresh re-fetches the sheet from the source unconditionally.
func (s *Service) Refresh() error {
	if s.source == "" {
		return fmt.Errorf("no price source configured")
	}

	sheet, err := loaders.LoadPricesCSV(s.source)
	if err != nil {
		return fmt.Errorf("failed to refresh price sheet: %w", err)
	}

	s.mu.Lock()
	s.sheet = sheet
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	s.log.Info().Int("tickers", len(sheet)).Msg("Price sheet refreshed")
	return nil
}

// FetchedAt returns when the sheet was last fetched (zero if never).
func (s *Service) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

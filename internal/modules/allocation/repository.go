// Package allocation stores the target allocation weights the rebalancer
// aims for.
package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

// Repository handles target weight persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// GetAll returns all stored target weights as ticker → weight.
func (r *Repository) GetAll() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT ticker, weight FROM target ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var weight float64
		if err := rows.Scan(&ticker, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		out[ticker] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating targets: %w", err)
	}
	return out, nil
}

// GetAllocation returns the stored targets as a TargetAllocation.
func (r *Repository) GetAllocation() (targets.TargetAllocation, error) {
	weights, err := r.GetAll()
	if err != nil {
		return targets.TargetAllocation{}, err
	}
	return targets.New(weights), nil
}

// ReplaceAll swaps the whole target set in one transaction. Tickers are
// normalized; negative weights are rejected.
func (r *Repository) ReplaceAll(weights map[string]float64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM target"); err != nil {
		return fmt.Errorf("failed to clear targets: %w", err)
	}

	for ticker, weight := range weights {
		ticker = domain.NormalizeTicker(ticker)
		if ticker == "" {
			return fmt.Errorf("target with empty ticker")
		}
		if weight < 0 {
			return fmt.Errorf("target weight must be >= 0 for %s, got %v", ticker, weight)
		}
		if _, err := tx.Exec(
			"INSERT INTO target(ticker, weight, updated_at) VALUES (?, ?, ?)",
			ticker, weight, now); err != nil {
			return fmt.Errorf("failed to insert target %s: %w", ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit targets: %w", err)
	}
	return nil
}

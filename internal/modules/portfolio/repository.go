package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/domain"
)

// ErrNotFound is returned when a portfolio id does not exist.
var ErrNotFound = errors.New("portfolio not found")

// Repository handles portfolio and position persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// List returns all portfolios, newest first.
func (r *Repository) List() ([]Record, error) {
	rows, err := r.db.Query("SELECT id, name, cash, created_at FROM portfolio ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Cash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return out, nil
}

// Create inserts a new portfolio and returns it.
func (r *Repository) Create(name string, cash float64) (Record, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.Exec(
		"INSERT INTO portfolio(name, cash, created_at) VALUES (?, ?, ?)", name, cash, now)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create portfolio: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read new portfolio id: %w", err)
	}
	return Record{ID: id, Name: name, Cash: cash, CreatedAt: now}, nil
}

// Get returns one portfolio by id.
func (r *Repository) Get(id int64) (Record, error) {
	var rec Record
	err := r.db.QueryRow(
		"SELECT id, name, cash, created_at FROM portfolio WHERE id = ?", id).
		Scan(&rec.ID, &rec.Name, &rec.Cash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query portfolio %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes a portfolio and, via cascade, its positions.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM portfolio WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPositions returns a portfolio's positions ordered by ticker.
func (r *Repository) GetPositions(id int64) ([]domain.Position, error) {
	rows, err := r.db.Query(
		"SELECT ticker, asset_type, quantity, price FROM position WHERE portfolio_id = ? ORDER BY ticker", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Ticker, &p.AssetType, &p.Quantity, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return out, nil
}

// ReplacePositions swaps a portfolio's full position set in one transaction,
// optionally updating cash at the same time.
func (r *Repository) ReplacePositions(id int64, positions []domain.Position, cash *float64) error {
	if _, err := r.Get(id); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM position WHERE portfolio_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	for _, p := range positions {
		ticker := domain.NormalizeTicker(p.Ticker)
		if ticker == "" {
			return fmt.Errorf("position with empty ticker")
		}
		_, err := tx.Exec(
			"INSERT INTO position(portfolio_id, ticker, asset_type, quantity, price, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			id, ticker, domain.NormalizeAssetType(p.AssetType), p.Quantity, p.Price, now)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", ticker, err)
		}
	}

	if cash != nil {
		if _, err := tx.Exec("UPDATE portfolio SET cash = ? WHERE id = ?", *cash, id); err != nil {
			return fmt.Errorf("failed to update cash: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positions: %w", err)
	}
	return nil
}

// SetCash updates a portfolio's cash balance.
func (r *Repository) SetCash(id int64, cash float64) error {
	res, err := r.db.Exec("UPDATE portfolio SET cash = ? WHERE id = ?", cash, id)
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cash update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordImport logs an import run for audit purposes.
func (r *Repository) RecordImport(id int64, filename string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.db.Exec(
		"INSERT INTO import_run(portfolio_id, filename, created_at) VALUES (?, ?, ?)",
		id, filename, now); err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// Load materializes a stored portfolio as a domain value.
func (r *Repository) Load(id int64) (domain.Portfolio, error) {
	rec, err := r.Get(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	positions, err := r.GetPositions(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	return domain.Portfolio{Positions: positions, Cash: rec.Cash}, nil
}

package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS portfolio (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		cash REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS position (
		portfolio_id INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (portfolio_id, ticker),
		FOREIGN KEY (portfolio_id) REFERENCES portfolio(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS target (
		ticker TEXT PRIMARY KEY,
		weight REAL NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS import_run (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (portfolio_id) REFERENCES portfolio(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_position_portfolio ON position(portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_import_run_portfolio ON import_run(portfolio_id);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Package db persists the variable store in SQLite so a run can be resumed
// by a later invocation.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/prbalcheck/packages/core/env"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS store_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	run_id   TEXT NOT NULL,
	saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS store_variables (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Client is a handle on one state database.
type Client struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// Open opens (creating if needed) the state database. conn is
// sqlite://path, sqlite:path or a bare file path.
func Open(conn string) (*Client, error) {
	dsn, err := parseConnectionString(conn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Client{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SaveStore replaces the saved variables with vars in one transaction.
func (c *Client) SaveStore(ctx context.Context, runID string, vars map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM store_variables`); err != nil {
		return fmt.Errorf("failed to clear variables: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO store_variables (name, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for name, value := range vars {
		if _, err := stmt.ExecContext(ctx, name, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO store_meta (id, run_id, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id, saved_at = excluded.saved_at`,
		runID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save run id: %w", err)
	}

	return tx.Commit()
}

// LoadStore returns the saved run id and variables. An empty database
// yields an empty run id and map.
func (c *Client) LoadStore(ctx context.Context) (string, map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var runID string
	err := c.db.QueryRowContext(ctx, `SELECT run_id FROM store_meta WHERE id = 1`).Scan(&runID)
	if err != nil && err != sql.ErrNoRows {
		return "", nil, fmt.Errorf("failed to read run id: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT name, value FROM store_variables`)
	if err != nil {
		return "", nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return "", nil, fmt.Errorf("failed to scan row: %w", err)
		}
		vars[name] = value
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runID, vars, nil
}

// Clear removes every saved variable and the run id.
func (c *Client) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM store_variables; DELETE FROM store_meta;`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// Persist saves the contents of store.
func (c *Client) Persist(ctx context.Context, store *env.Store) error {
	return c.SaveStore(ctx, store.RunID(), store.Snapshot())
}

// Restore loads the saved variables into store and adopts the saved run id.
// Saved values overwrite what store already holds.
func (c *Client) Restore(ctx context.Context, store *env.Store) error {
	runID, vars, err := c.LoadStore(ctx)
	if err != nil {
		return err
	}
	store.SetAll(vars)
	store.SetRunID(runID)
	return nil
}

// parseConnectionString accepts sqlite://path, sqlite:path and bare paths.
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case connStr == "":
		return "", fmt.Errorf("empty connection string")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
	return connStr, nil
}

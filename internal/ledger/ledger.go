// Package ledger provides a durable audit log of merge operations.
//
// The ledger is an external collaborator of the merge engine: the engine
// stays pure and in-memory, and the CLI opts into recording each merge
// outcome here. Uses SQLite with WAL mode for concurrent read access.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/willowtree-housing/willow/internal/merge"
	"github.com/willowtree-housing/willow/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Ledger records merge outcomes in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Entry is one recorded merge.
type Entry struct {
	ID          string       `json:"id"`
	StartedAt   string       `json:"started_at"`
	Accepted    int          `json:"accepted"`
	Rejected    int          `json:"rejected"`
	Duplicates  int          `json:"duplicates"`
	MergedTotal int          `json:"merged_total"`
	Report      merge.Report `json:"report"`
}

// Open creates or opens a ledger database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// against an existing ledger.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// RecordMerge writes one merge report to the ledger and returns the
// assigned merge ID.
func (l *Ledger) RecordMerge(ctx context.Context, report merge.Report) (string, error) {
	id := uuid.NewString()
	startedAt := schema.FormatTimestamp(time.Now())

	blob, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal merge report: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO merges (id, started_at, accepted, rejected, duplicates, merged_total, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, startedAt, report.AcceptedCount, report.RejectedCount,
		len(report.DuplicateIDs), report.MergedTotal, string(blob))
	if err != nil {
		return "", fmt.Errorf("failed to record merge: %w", err)
	}

	return id, nil
}

// History returns the most recent merges, newest first. A non-positive
// limit returns everything.
func (l *Ledger) History(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, started_at, accepted, rejected, duplicates, merged_total, report
	          FROM merges ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var blob string
		if err := rows.Scan(&e.ID, &e.StartedAt, &e.Accepted, &e.Rejected,
			&e.Duplicates, &e.MergedTotal, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan merge row: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &e.Report); err != nil {
			return nil, fmt.Errorf("failed to decode merge report %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read merge history: %w", err)
	}

	return entries, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

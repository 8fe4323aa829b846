package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"aum/internal/umapi"
)

// Store records batch runs and their per-user outcomes in SQLite so
// operators can audit what a provisioning run actually did. Only audit
// data lives here; API response payloads are never persisted.
type Store struct {
	db *sql.DB
}

// Run is one recorded batch operation
type Run struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	CacheHits  uint64    `json:"cache_hits"`
	APICalls   uint64    `json:"api_calls"`
}

// Item is one user's outcome within a run
type Item struct {
	Index  int    `json:"index"`
	Email  string `json:"email"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Open creates or opens the history database in the standard data directory
func Open() (*Store, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return OpenPath(filepath.Join(dataDir, "history.db"))
}

// OpenPath opens the history database at an explicit path
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

// Close closes the history database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a completed batch run and its per-user outcomes.
// Emails must be positionally aligned with outcomes.
func (s *Store) RecordRun(operation string, startedAt, finishedAt time.Time, emails []string, outcomes []umapi.Outcome, metrics umapi.Metrics) (string, error) {
	summary := umapi.Summarize(outcomes)
	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(id, operation, started_at, finished_at, total, succeeded, failed, cache_hits, api_calls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, operation, startedAt.Unix(), finishedAt.Unix(),
		summary.Total, summary.Succeeded, summary.Failed,
		metrics.CacheHits, metrics.APICalls)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	for i, outcome := range outcomes {
		email := ""
		if i < len(emails) {
			email = emails[i]
		}
		status, detail := umapi.OutcomeStatus(outcome)
		_, err = tx.Exec(`
			INSERT INTO run_items (run_id, idx, email, status, detail)
			VALUES (?, ?, ?, ?, ?)
		`, runID, outcome.Index, email, status, detail)
		if err != nil {
			return "", fmt.Errorf("failed to record run item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit history transaction: %w", err)
	}

	return runID, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, operation, started_at, finished_at, total, succeeded, failed, cache_hits, api_calls
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedUnix, finishedUnix int64
		if err := rows.Scan(&run.ID, &run.Operation, &startedUnix, &finishedUnix,
			&run.Total, &run.Succeeded, &run.Failed, &run.CacheHits, &run.APICalls); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(startedUnix, 0)
		run.FinishedAt = time.Unix(finishedUnix, 0)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns one run by ID, matching on unambiguous ID prefixes so
// operators can paste the short form shown in listings.
func (s *Store) GetRun(id string) (*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, started_at, finished_at, total, succeeded, failed, cache_hits, api_calls
		FROM runs
		WHERE id LIKE ? || '%'
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		var run Run
		var startedUnix, finishedUnix int64
		if err := rows.Scan(&run.ID, &run.Operation, &startedUnix, &finishedUnix,
			&run.Total, &run.Succeeded, &run.Failed, &run.CacheHits, &run.APICalls); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(startedUnix, 0)
		run.FinishedAt = time.Unix(finishedUnix, 0)
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no run matching %q", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run ID %q is ambiguous (%d matches)", id, len(matches))
	}
}

// RunItems returns the per-user outcomes of a run in input order
func (s *Store) RunItems(runID string) ([]Item, error) {
	rows, err := s.db.Query(`
		SELECT idx, email, status, detail
		FROM run_items
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Index, &item.Email, &item.Status, &item.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Clear removes all recorded history
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM run_items"); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM runs"); err != nil {
		return err
	}
	_, err := s.db.Exec("VACUUM")
	return err
}

// Stats summarizes the history database
type Stats struct {
	TotalRuns int64 `json:"total_runs"`
	SizeBytes int64 `json:"size_bytes"`
}

// Stats returns history database statistics
func (s *Store) Stats() (*Stats, error) {
	var stats Stats

	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = pageCount * pageSize

	return &stats, nil
}

// initSchema creates the history tables if they don't exist
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			cache_hits INTEGER NOT NULL,
			api_calls INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_items (
			run_id TEXT NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT,
			PRIMARY KEY (run_id, idx)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// getDataDir returns the data directory following XDG standards
func getDataDir() (string, error) {
	if dataDir := os.Getenv("AUM_DATA_DIR"); dataDir != "" {
		return dataDir, nil
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "aum"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".local", "share", "aum"), nil
}

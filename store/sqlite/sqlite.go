/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Report data itself is never persisted. This store keeps the operational
  state that must survive a restart: the run log and the accounting API's
  rotating OAuth token.

INTERFACES IMPLEMENTED:
  generic.RunStore:   report_runs
  generic.TokenStore: oauth_tokens

KEY TABLES:
  report_runs:  One row per report invocation. Inserted as 'running' and
                updated exactly once to 'completed' or 'failed'.
  oauth_tokens: One row per provider. Rewritten on every refresh.

TOKEN ROTATION:
  Rotate() opens a transaction with BEGIN IMMEDIATE (DSN _txlock=immediate),
  which takes SQLite's write lock up front. A second process calling Rotate
  blocks at BEGIN until the first commits, then reads the token the first
  one wrote. Inside one process the mutex gives the same guarantee without
  touching the busy timeout.

WAL MODE:
  Opened with WAL so the API can list runs while a report is writing.

USAGE:
  store, err := sqlite.New("./data/bizops.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/bizops-engine/generic"
)

// Store implements RunStore and TokenStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// rotateMu serializes Rotate within this process.
	rotateMu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		entries INTEGER NOT NULL DEFAULT 0,
		error_category TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_report_runs_started
		ON report_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_report_runs_status
		ON report_runs(status);

	CREATE TABLE IF NOT EXISTS oauth_tokens (
		provider TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN LOG (generic.RunStore interface)
// =============================================================================

// StartRun inserts a run in 'running' state.
func (s *Store) StartRun(ctx context.Context, run generic.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO report_runs (id, kind, year, status, entries, started_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, string(run.Kind), run.Year, string(generic.RunRunning),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun moves a running run to its final status. Finishing a run twice
// returns ErrRunNotFound the second time.
func (s *Store) FinishRun(ctx context.Context, id string, result generic.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE report_runs
		SET status = ?, entries = ?, error_category = ?, error = ?, completed_at = ?
		WHERE id = ? AND status = 'running'
	`
	res, err := s.db.ExecContext(ctx, query,
		string(result.Status), result.Entries,
		nullString(result.ErrorCategory), nullString(result.Error),
		result.CompletedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrRunNotFound
	}
	return nil
}

const runColumns = `id, kind, year, status, entries, error_category, error, started_at, completed_at`

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (*generic.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM report_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]generic.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM report_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (generic.Run, error) {
	var r generic.Run
	var kind, status, startedAt string
	var errCategory, errMsg, completedAt sql.NullString
	if err := sc.Scan(&r.ID, &kind, &r.Year, &status, &r.Entries,
		&errCategory, &errMsg, &startedAt, &completedAt); err != nil {
		return r, err
	}
	r.Kind = generic.RunKind(kind)
	r.Status = generic.RunStatus(status)
	r.ErrorCategory = errCategory.String
	r.Error = errMsg.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
		r.CompletedAt = &t
	}
	return r, nil
}

// =============================================================================
// TOKENS (generic.TokenStore interface)
// =============================================================================

// LoadToken returns the stored token for provider.
func (s *Store) LoadToken(ctx context.Context, provider string) (generic.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := loadToken(ctx, s.db, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Token{}, false, nil
	}
	if err != nil {
		return generic.Token{}, false, err
	}
	return t, true, nil
}

// Rotate runs fn inside a write transaction and stores its result.
func (s *Store) Rotate(ctx context.Context, provider string, fn func(generic.Token) (generic.Token, error)) (generic.Token, error) {
	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Token{}, fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback()

	current, err := loadToken(ctx, tx, provider)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return generic.Token{}, err
	}

	next, err := fn(current)
	if err != nil {
		return generic.Token{}, err
	}
	next.Provider = provider
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		provider, next.AccessToken, next.RefreshToken,
		next.ExpiresAt.UTC().Format(time.RFC3339Nano),
		next.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return generic.Token{}, fmt.Errorf("store token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return generic.Token{}, fmt.Errorf("commit token: %w", err)
	}
	return next, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadToken(ctx context.Context, q queryer, provider string) (generic.Token, error) {
	var t generic.Token
	var expiresAt, updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT provider, access_token, refresh_token, expires_at, updated_at
		FROM oauth_tokens WHERE provider = ?
	`, provider).Scan(&t.Provider, &t.AccessToken, &t.RefreshToken, &expiresAt, &updatedAt)
	if err != nil {
		return generic.Token{}, err
	}
	t.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return t, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Package store is tabvault's durable tab archive. It keeps tab groups and
// their tabs in SQLite with an FTS5 index over titles and URLs, and merges
// sessions into it idempotently: records are keyed by id and inserted only
// when absent, all inside one transaction per session.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = "tabvault.db"

var (
	// ErrTransaction wraps any storage failure during a transactional write.
	// The transaction has been rolled back when it is returned.
	ErrTransaction = errors.New("store: transaction failed")

	// ErrNotFound is returned when a group id does not exist.
	ErrNotFound = errors.New("store: not found")
)

// ─── Types ───────────────────────────────────────────────────────────────────

// InsertStats counts what an import added and what was already present.
type InsertStats struct {
	RunID          string `json:"run_id"`
	GroupsInserted int    `json:"groups_inserted"`
	GroupsSkipped  int    `json:"groups_skipped"`
	TabsInserted   int    `json:"tabs_inserted"`
	TabsSkipped    int    `json:"tabs_skipped"`
}

// TabHit is a stored tab with the group it belongs to.
type TabHit struct {
	Tab        model.Tab `json:"tab"`
	GroupID    string    `json:"group_id"`
	GroupLabel *string   `json:"group_label,omitempty"`
}

// SearchResult is a full-text match with its FTS5 rank (lower is better).
type SearchResult struct {
	TabHit
	Rank float64 `json:"rank"`
}

// Stats holds aggregate archive statistics.
type Stats struct {
	TotalGroups int                 `json:"total_groups"`
	TotalTabs   int                 `json:"total_tabs"`
	ImportRuns  int                 `json:"import_runs"`
	Oldest      *time.Time          `json:"oldest,omitempty"`
	Newest      *time.Time          `json:"newest,omitempty"`
	TopDomains  []model.DomainCount `json:"top_domains"`
}

// ImportRun is one recorded InsertSession call.
type ImportRun struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	GroupsInserted int       `json:"groups_inserted"`
	GroupsSkipped  int       `json:"groups_skipped"`
	TabsInserted   int       `json:"tabs_inserted"`
	TabsSkipped    int       `json:"tabs_skipped"`
	ImportedAt     time.Time `json:"imported_at"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultDataDir returns the per-user data directory for tabvault.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "tabvault")
		}
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "tabvault")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "tabvault")
		}
		return filepath.Join(home, ".local", "share", "tabvault")
	}
	return filepath.Join(home, ".tabvault")
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		MaxSearchResults: 100,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the tab archive backed by SQLite + FTS5.
//
// The pool is limited to a single connection so that connection-scoped
// pragmas (foreign keys) always apply. Methods therefore never hold a result
// set open while issuing another statement.
type Store struct {
	db    *sql.DB
	cfg   Config
	path  string
	log   *zap.Logger
	hooks storeHooks

	// writeMu serializes transactional writes from concurrent callers.
	writeMu sync.Mutex
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	queryIt func(ctx context.Context, db queryer, query string, args ...any) (rowScanner, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) queryItHook(ctx context.Context, db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(ctx, db, query, args...)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = DefaultConfig().MaxSearchResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFileName)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, path: dbPath, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}

	log.Debug("store opened", zap.String("path", dbPath))
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tab_groups (
			id             TEXT    PRIMARY KEY,
			label          TEXT,
			created_at     INTEGER NOT NULL,
			pinned         INTEGER NOT NULL DEFAULT 0,
			locked         INTEGER NOT NULL DEFAULT 0,
			starred        INTEGER NOT NULL DEFAULT 0,
			source_type    TEXT    NOT NULL,
			source_browser TEXT,
			source_profile TEXT,
			source_path    TEXT
		);

		CREATE TABLE IF NOT EXISTS import_runs (
			id              TEXT    PRIMARY KEY,
			source          TEXT    NOT NULL,
			groups_inserted INTEGER NOT NULL,
			groups_skipped  INTEGER NOT NULL,
			tabs_inserted   INTEGER NOT NULL,
			tabs_skipped    INTEGER NOT NULL,
			imported_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_groups_created  ON tab_groups(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_imported   ON import_runs(imported_at DESC);
	`
	if _, err := s.execHook(ctx, s.db, schema); err != nil {
		return err
	}

	legacy, err := s.retireLegacyTabs(ctx)
	if err != nil {
		return err
	}

	// seq is the FTS content rowid. An explicit INTEGER PRIMARY KEY keeps it
	// stable across VACUUM, which may renumber implicit rowids.
	tabsSchema := `
		CREATE TABLE IF NOT EXISTS tabs (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT    NOT NULL UNIQUE,
			group_id    TEXT    NOT NULL,
			url         TEXT    NOT NULL,
			title       TEXT    NOT NULL DEFAULT '',
			favicon_url TEXT,
			added_at    INTEGER NOT NULL,
			position    INTEGER NOT NULL,
			FOREIGN KEY (group_id) REFERENCES tab_groups(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_tabs_group ON tabs(group_id, position);
		CREATE INDEX IF NOT EXISTS idx_tabs_url   ON tabs(url);

		CREATE VIRTUAL TABLE IF NOT EXISTS tabs_fts USING fts5(
			title,
			url,
			content='tabs',
			content_rowid='seq'
		);
	`
	if _, err := s.execHook(ctx, s.db, tabsSchema); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err = s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='tabs_fts_insert'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER tabs_fts_insert AFTER INSERT ON tabs BEGIN
				INSERT INTO tabs_fts(rowid, title, url)
				VALUES (new.seq, new.title, new.url);
			END;

			CREATE TRIGGER tabs_fts_delete AFTER DELETE ON tabs BEGIN
				INSERT INTO tabs_fts(tabs_fts, rowid, title, url)
				VALUES ('delete', old.seq, old.title, old.url);
			END;

			CREATE TRIGGER tabs_fts_update AFTER UPDATE ON tabs BEGIN
				INSERT INTO tabs_fts(tabs_fts, rowid, title, url)
				VALUES ('delete', old.seq, old.title, old.url);
				INSERT INTO tabs_fts(rowid, title, url)
				VALUES (new.seq, new.title, new.url);
			END;
		`
		if _, err := s.execHook(ctx, s.db, triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if legacy {
		// The insert trigger indexes every copied row.
		copyTabs := `
			INSERT OR IGNORE INTO tabs (id, group_id, url, title, favicon_url, added_at, position)
			SELECT id, group_id, url, title, favicon_url, added_at, position
			FROM tabs_legacy ORDER BY rowid;
			DROP TABLE tabs_legacy;
		`
		if _, err := s.execHook(ctx, s.db, copyTabs); err != nil {
			return fmt.Errorf("copy legacy tabs: %w", err)
		}
		s.log.Info("migrated tabs table to a stable FTS key")
	}
	return nil
}

// retireLegacyTabs moves a tabs table created without the seq column out of
// the way, together with its FTS index, so migrate can rebuild both. It
// reports whether rows are waiting in tabs_legacy.
func (s *Store) retireLegacyTabs(ctx context.Context) (bool, error) {
	var pending, tables, seqColumns int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tabs_legacy'",
	).Scan(&pending); err != nil {
		return false, err
	}
	if pending > 0 {
		// An earlier migration stopped before copying.
		return true, nil
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tabs'",
	).Scan(&tables); err != nil {
		return false, err
	}
	if tables == 0 {
		return false, nil
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info('tabs') WHERE name='seq'",
	).Scan(&seqColumns); err != nil {
		return false, err
	}
	if seqColumns > 0 {
		return false, nil
	}

	retire := `
		DROP TRIGGER IF EXISTS tabs_fts_insert;
		DROP TRIGGER IF EXISTS tabs_fts_delete;
		DROP TRIGGER IF EXISTS tabs_fts_update;
		DROP TABLE IF EXISTS tabs_fts;
		DROP INDEX IF EXISTS idx_tabs_group;
		DROP INDEX IF EXISTS idx_tabs_url;
		ALTER TABLE tabs RENAME TO tabs_legacy;
	`
	if _, err := s.execHook(ctx, s.db, retire); err != nil {
		return false, fmt.Errorf("retire legacy tabs: %w", err)
	}
	return true, nil
}

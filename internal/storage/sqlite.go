package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteOptions struct {
	Path        string
	BusyTimeout time.Duration
	// Synchronous is one of OFF, NORMAL, FULL or EXTRA. Empty means NORMAL.
	Synchronous string
	// CacheSize is passed to PRAGMA cache_size when non-zero.
	CacheSize int
	// IntegrityCheck runs PRAGMA integrity_check after opening a file
	// database and refuses to serve a damaged one.
	IntegrityCheck bool
}

// SQLiteStore keeps shows in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(options SQLiteOptions) (*SQLiteStore, error) {
	path := options.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	synchronous := strings.ToUpper(options.Synchronous)
	switch synchronous {
	case "":
		synchronous = "NORMAL"
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		_ = db.Close()
		return nil, fmt.Errorf("storage: unknown synchronous mode %q", options.Synchronous)
	}
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", synchronous),
		fmt.Sprintf("PRAGMA busy_timeout=%d", int(options.BusyTimeout/time.Millisecond)),
		"PRAGMA temp_store=MEMORY",
	}
	if options.CacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=%d", options.CacheSize))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}
	if options.IntegrityCheck && path != ":memory:" {
		if err := store.checkIntegrity(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := store.MigrateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNoConnection
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) IntegrityCheck(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errNoConnection
	}
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, fmt.Errorf("storage: integrity check: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, fmt.Errorf("storage: integrity check: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: integrity check: %w", err)
	}
	return results, nil
}

func (s *SQLiteStore) checkIntegrity(ctx context.Context) error {
	results, err := s.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if len(results) != 1 || results[0] != "ok" {
		return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(results, "; "))
	}
	return nil
}

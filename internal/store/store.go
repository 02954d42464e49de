package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("store: key not found")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;
`

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. Created if missing. ":memory:"
	// is accepted for tests, but PoolSize must then be 1 because each
	// in-memory connection is an independent database.
	Path string

	// PoolSize is the connection pool size. Defaults to 4.
	PoolSize int

	// Logger receives operational messages. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Store is a persistent key-value store with prefix scans and retention
// trimming, backed by a single SQLite file. It is safe for concurrent
// use. Keys are opaque strings; callers that need ordered history rely
// on the key encoding in keys.go.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Path, err)
	}

	logger.Info("store opened", "path", cfg.Path, "pool_size", poolSize)
	return &Store{pool: pool, logger: logger}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	discard := &sqlitex.ExecOptions{
		ResultFunc: func(*sqlite.Stmt) error { return nil },
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, discard); err != nil {
			return fmt.Errorf("store: %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// Close closes the connection pool. Blocks until all borrowed
// connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	defer s.pool.Put(conn)

	var value []byte
	found := false
	err = sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = []byte(stmt.ColumnText(0))
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

// Put writes value under key. An exact key collision overwrites the
// previous value; no other row is touched.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, string(value)}},
	)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

// Del removes key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: del %s: %w", key, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
	})
	if err != nil {
		return fmt.Errorf("store: del %s: %w", key, err)
	}
	return nil
}

// ScanPrefix returns every key-value pair whose key starts with prefix.
// The scan walks the whole table in key order and filters, which is
// acceptable for the bounded dataset sizes retention trimming keeps us
// at. An empty prefix returns everything.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", prefix, err)
	}
	defer s.pool.Put(conn)

	values := make(map[string][]byte)
	err = sqlitex.Execute(conn, "SELECT key, value FROM kv ORDER BY key", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			key := stmt.ColumnText(0)
			if strings.HasPrefix(key, prefix) {
				values[key] = []byte(stmt.ColumnText(1))
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", prefix, err)
	}
	return values, nil
}

// Trim enforces the retention cap under prefix: the keep
// lexicographically-largest keys survive, everything older is deleted.
// Returns the number of keys deleted. Running Trim again with no
// intervening writes deletes nothing.
//
// The matching keys are snapshotted on one connection before any delete
// is issued. Puts racing with the snapshot may be missed by this pass;
// a later pass picks them up.
func (s *Store) Trim(ctx context.Context, prefix string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: trim %s: %w", prefix, err)
	}
	defer s.pool.Put(conn)

	var keys []string
	err = sqlitex.Execute(conn, "SELECT key FROM kv", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if key := stmt.ColumnText(0); strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("store: trim %s: %w", prefix, err)
	}

	// Newest first: key encoding makes lexicographic order chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) <= keep {
		return 0, nil
	}

	deleted := 0
	for _, key := range keys[keep:] {
		err = sqlitex.Execute(conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
		})
		if err != nil {
			return deleted, fmt.Errorf("store: trim %s: deleting %s: %w", prefix, key, err)
		}
		deleted++
	}
	s.logger.Debug("trimmed", "prefix", prefix, "deleted", deleted, "kept", keep)
	return deleted, nil
}

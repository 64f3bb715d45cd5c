package statestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the default embedded Store backend.
//
// The data directory is guarded with a file lock so two processes cannot
// open the same store concurrently; SQLite's locking protects individual
// statements but not the store's batch invariants across processes.
type SQLite struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *slog.Logger
}

// NewSQLite opens (creating if necessary) a SQLite-backed store at dbPath
// and applies pending schema migrations.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", ErrUnavailable, err)
	}

	lock := flock.New(filepath.Join(dir, ".sessionvault.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire data directory lock: %v", ErrUnavailable, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: data directory %s is locked by another process", ErrUnavailable, dir)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: open database: %v", ErrUnavailable, err)
	}

	// WAL allows concurrent readers during writes; busy_timeout covers
	// short writer contention inside this process.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, pragma, err)
		}
	}

	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	logger.Debug("opened sqlite state store", "path", dbPath)
	return &SQLite{db: db, lock: lock, logger: logger}, nil
}

// migrateSQLite applies all pending migrations from the embedded filesystem.
func migrateSQLite(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: create migrate driver: %v", ErrUnavailable, err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: create migration source: %v", ErrUnavailable, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%w: create migrate instance: %v", ErrUnavailable, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: apply migrations: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Put stores value under key, overwriting any existing value.
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// PutBatch stores all entries in one transaction.
func (s *SQLite) PutBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Debug("batch rollback", "error", err)
		}
	}()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			e.Key, e.Value,
		); err != nil {
			return fmt.Errorf("%w: batch put %s: %v", ErrUnavailable, e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// List returns all keys with the given prefix, sorted ascending.
func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", ErrUnavailable, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, prefix, err)
	}
	return keys, nil
}

// DeleteScope removes every key under the scope prefix.
func (s *SQLite) DeleteScope(ctx context.Context, scope Scope) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE key LIKE ? ESCAPE '\'`,
		escapeLike(scope.Prefix())+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("%w: delete scope %s: %v", ErrUnavailable, scope, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Close closes the database and releases the data directory lock.
func (s *SQLite) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return dbErr
	}
	return lockErr
}

// escapeLike escapes LIKE metacharacters so a prefix is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

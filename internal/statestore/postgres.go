package statestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema is applied idempotently on startup. A single relation is
// enough: scoping lives in the key structure, not the schema.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is a Store backed by a PostgreSQL connection pool, for
// deployments where multiple processes share one state store.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store from an existing pool and ensures
// the schema exists. The caller owns the pool's lifetime unless it calls
// Close.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("%w: apply schema: %v", ErrUnavailable, err)
	}

	logger.Debug("opened postgres state store")
	return &Postgres{pool: pool, logger: logger}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		"SELECT value FROM kv WHERE key = $1", key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Put stores value under key, overwriting any existing value.
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// PutBatch stores all entries in one transaction.
func (p *Postgres) PutBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.Debug("batch rollback", "error", err)
		}
	}()

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			e.Key, e.Value,
		); err != nil {
			return fmt.Errorf("%w: batch put %s: %v", ErrUnavailable, e.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit batch: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM kv WHERE key = $1", key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// List returns all keys with the given prefix, sorted ascending.
func (p *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key FROM kv WHERE key LIKE $1 ESCAPE '\' ORDER BY key`,
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
func (p *Postgres) DeleteScope(ctx context.Context, scope Scope) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM kv WHERE key LIKE $1 ESCAPE '\'`,
		escapeLike(scope.Prefix())+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("%w: delete scope %s: %v", ErrUnavailable, scope, err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

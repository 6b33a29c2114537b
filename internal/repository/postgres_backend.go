package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresBackend stores payloads in the records table.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	if err := b.db.GetContext(ctx, &payload, `SELECT payload FROM records WHERE key = $1`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select record %s: %w", key, err)
	}
	return payload, true, nil
}

// Put implements Backend.
func (b *PostgresBackend) Put(ctx context.Context, key string, payload []byte) error {
	const query = `INSERT INTO records (key, payload, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	// jsonb columns reject the bytea encoding lib/pq uses for []byte
	if _, err := b.db.ExecContext(ctx, query, key, string(payload)); err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

// Ping checks the connection pool.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

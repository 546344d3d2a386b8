package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// DefaultTable holds snapshots in the postgres backend.
const DefaultTable = "voicechat_snapshots"

// PostgresStorage keeps snapshots as rows keyed by snapshot key.
type PostgresStorage struct {
	db    *sql.DB
	table string
	owned bool
}

// OpenPostgres connects with dsn, verifies the connection and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: ping postgres: %w", err)
	}
	s, err := NewPostgresStorage(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewPostgresStorage uses an existing pool. The caller keeps ownership of db.
func NewPostgresStorage(ctx context.Context, db *sql.DB, table string) (*PostgresStorage, error) {
	if table == "" {
		table = DefaultTable
	}
	s := &PostgresStorage{db: db, table: pq.QuoteIdentifier(table)}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("snapshot: create table: %w", err)
	}
	return s, nil
}

// Load selects the row for key.
func (s *PostgresStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: select %s: %w", key, err)
	}
	return data, nil
}

// Save upserts the row for key.
func (s *PostgresStorage) Save(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, data, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("snapshot: upsert %s: %s (%s)", key, pqErr.Message, pqErr.Code.Name())
		}
		return fmt.Errorf("snapshot: upsert %s: %w", key, err)
	}
	return nil
}

// Name returns "postgres".
func (s *PostgresStorage) Name() string { return "postgres" }

// Close closes the pool when this storage opened it.
func (s *PostgresStorage) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

var _ Storage = (*PostgresStorage)(nil)

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

const (
	pgMaxConns       = 10
	pgConnectTimeout = 5 * time.Second
	pgPingTimeout    = 2 * time.Second
)

const createLogosTable = `
CREATE TABLE IF NOT EXISTS tenant_logos (
	tenant     TEXT PRIMARY KEY,
	set_id     TEXT NOT NULL,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresPool opens and pings a pool for dsn.
func NewPostgresPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}
	cfg.MaxConns = pgMaxConns
	cfg.ConnConfig.ConnectTimeout = pgConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	logger.Info("postgres pool connected", slog.Int("max_conns", int(cfg.MaxConns)))
	return pool, nil
}

// PostgresStore keeps one row per tenant.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool and creates the table when missing.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, createLogosTable); err != nil {
		return nil, fmt.Errorf("create tenant_logos: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save upserts the tenant's row in a single statement.
func (s *PostgresStore) Save(ctx context.Context, set *logo.Set) error {
	if set == nil || set.Tenant == "" {
		return apperr.ValidationError("logo set has no tenant")
	}

	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode logo set: %w", err)
	}

	const q = `
INSERT INTO tenant_logos (tenant, set_id, body, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tenant) DO UPDATE
SET set_id = EXCLUDED.set_id, body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, q, set.Tenant, set.ID, body); err != nil {
		return apperr.Internal(fmt.Errorf("postgres logo save: %w", err))
	}
	return nil
}

// Load returns the tenant's set.
func (s *PostgresStore) Load(ctx context.Context, tenant string) (*logo.Set, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM tenant_logos WHERE tenant = $1`, tenant).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("logo")
		}
		return nil, apperr.Internal(fmt.Errorf("postgres logo load: %w", err))
	}

	var set logo.Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, apperr.Internal(fmt.Errorf("decode logo set for %s: %w", tenant, err))
	}
	return &set, nil
}

// Delete removes the tenant's row.
func (s *PostgresStore) Delete(ctx context.Context, tenant string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenant_logos WHERE tenant = $1`, tenant)
	if err != nil {
		return apperr.Internal(fmt.Errorf("postgres logo delete: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("logo")
	}
	return nil
}

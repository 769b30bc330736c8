package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"churn_service/internal/domain/model"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	owner           TEXT NOT NULL,
	customer_count  INTEGER NOT NULL,
	churn_rate_pct  DOUBLE PRECISION NOT NULL,
	at_risk_count   INTEGER NOT NULL,
	high_risk_count INTEGER NOT NULL,
	total_revenue   DOUBLE PRECISION NOT NULL,
	revenue_at_risk DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dataset_snapshots_owner_idx ON dataset_snapshots (owner, created_at DESC);

CREATE TABLE IF NOT EXISTS churn_assessments (
	id          BIGSERIAL PRIMARY KEY,
	customer_id TEXT NOT NULL,
	probability DOUBLE PRECISION NOT NULL,
	risk_level  TEXT NOT NULL,
	actions     TEXT[] NOT NULL,
	source      TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type PostgresRepository struct {
	DB *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresRepository{DB: db}, nil
}

// EnsureSchema creates the tables used by the repository and the recorder.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}

func (r *PostgresRepository) Save(ctx context.Context, snap model.DatasetSnapshot) error {
	const query = `
		INSERT INTO dataset_snapshots (
			id, name, owner,
			customer_count, churn_rate_pct, at_risk_count, high_risk_count,
			total_revenue, revenue_at_risk, created_at
		) VALUES (
			:id, :name, :owner,
			:customer_count, :churn_rate_pct, :at_risk_count, :high_risk_count,
			:total_revenue, :revenue_at_risk, :created_at
		)`

	_, err := r.DB.NamedExecContext(ctx, query, snap)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (model.DatasetSnapshot, error) {
	const query = `
		SELECT
			id, name, owner,
			customer_count, churn_rate_pct, at_risk_count, high_risk_count,
			total_revenue, revenue_at_risk, created_at
		FROM dataset_snapshots
		WHERE id = $1`

	var snap model.DatasetSnapshot
	err := r.DB.GetContext(ctx, &snap, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DatasetSnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return model.DatasetSnapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return snap, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]model.DatasetSnapshot, error) {
	const query = `
		SELECT
			id, name, owner,
			customer_count, churn_rate_pct, at_risk_count, high_risk_count,
			total_revenue, revenue_at_risk, created_at
		FROM dataset_snapshots
		WHERE owner = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	snaps := []model.DatasetSnapshot{}
	if err := r.DB.SelectContext(ctx, &snaps, query, owner, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

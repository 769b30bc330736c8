package repository

import (
	"context"
	"errors"

	"churn_service/internal/domain/model"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotExists   = errors.New("snapshot already exists")
)

const DefaultHistoryLimit = 50

// DatasetRepository stores dataset snapshots. Snapshots are immutable, so
// saving an existing ID fails with ErrSnapshotExists.
type DatasetRepository interface {
	Save(ctx context.Context, snap model.DatasetSnapshot) error
	Get(ctx context.Context, id string) (model.DatasetSnapshot, error)
	// ListByOwner returns the newest snapshots first
	ListByOwner(ctx context.Context, owner string, limit int) ([]model.DatasetSnapshot, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

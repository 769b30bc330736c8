package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"churn_service/internal/domain/model"
)

// MemoryRepository keeps snapshots in process. Used in tests and when no
// database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]model.DatasetSnapshot
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]model.DatasetSnapshot{}}
}

func (r *MemoryRepository) Save(_ context.Context, snap model.DatasetSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[snap.ID]; ok {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.ID)
	}
	r.byID[snap.ID] = snap
	r.order = append(r.order, snap.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (model.DatasetSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.byID[id]
	if !ok {
		return model.DatasetSnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return snap, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, owner string, limit int) ([]model.DatasetSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.DatasetSnapshot, 0)
	// Walk newest insert first so equal timestamps keep a stable order.
	for i := len(r.order) - 1; i >= 0; i-- {
		snap := r.byID[r.order[i]]
		if snap.Owner == owner {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

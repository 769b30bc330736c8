package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"churn_service/internal/domain/model"
)

const snapshotKeyPrefix = "churn:snapshot:"

// CachedRepository puts a Redis read-through cache in front of Get.
// Redis failures are logged and the inner repository answers instead.
type CachedRepository struct {
	inner  DatasetRepository
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRepository(inner DatasetRepository, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRepository{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("snapshot-cache"),
	}
}

func snapshotKey(id string) string { return snapshotKeyPrefix + id }

func (r *CachedRepository) Save(ctx context.Context, snap model.DatasetSnapshot) error {
	if err := r.inner.Save(ctx, snap); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, snapshotKey(snap.ID)).Err(); err != nil {
		r.logger.Warn("Failed to invalidate cached snapshot", zap.String("id", snap.ID), zap.Error(err))
	}
	return nil
}

func (r *CachedRepository) Get(ctx context.Context, id string) (model.DatasetSnapshot, error) {
	raw, err := r.rdb.Get(ctx, snapshotKey(id)).Bytes()
	switch {
	case err == nil:
		var snap model.DatasetSnapshot
		if jerr := json.Unmarshal(raw, &snap); jerr == nil {
			return snap, nil
		}
		r.logger.Warn("Dropping undecodable cached snapshot", zap.String("id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("Snapshot cache read failed", zap.String("id", id), zap.Error(err))
	}

	snap, err := r.inner.Get(ctx, id)
	if err != nil {
		return model.DatasetSnapshot{}, err
	}

	payload, err := json.Marshal(snap)
	if err == nil {
		err = r.rdb.Set(ctx, snapshotKey(id), payload, r.ttl).Err()
	}
	if err != nil {
		r.logger.Warn("Snapshot cache write failed", zap.String("id", id), zap.Error(err))
	}
	return snap, nil
}

func (r *CachedRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]model.DatasetSnapshot, error) {
	return r.inner.ListByOwner(ctx, owner, limit)
}

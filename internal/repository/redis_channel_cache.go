package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"channel-backend/internal/domain"
)

const cacheKeyPrefix = "channel:snapshot:"

// CachedChannelRepository puts a Redis read-through cache in front of
// another repository. Writes go to the backing store first, then the cache.
// Cache failures are logged and never fail the call.
type CachedChannelRepository struct {
	next domain.ChannelRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedChannelRepository(next domain.ChannelRepository, rdb redis.Cmdable, ttl time.Duration) *CachedChannelRepository {
	return &CachedChannelRepository{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(symbol, interval string) string {
	return cacheKeyPrefix + domain.SnapshotKey(symbol, interval)
}

func (r *CachedChannelRepository) SaveSnapshot(ctx context.Context, snap *domain.ChannelSnapshot) error {
	if err := r.next.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	r.store(ctx, snap)
	return nil
}

func (r *CachedChannelRepository) GetSnapshot(ctx context.Context, symbol, interval string) (*domain.ChannelSnapshot, error) {
	raw, err := r.rdb.Get(ctx, cacheKey(symbol, interval)).Bytes()
	if err == nil {
		var snap domain.ChannelSnapshot
		if jsonErr := json.Unmarshal(raw, &snap); jsonErr == nil {
			return &snap, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("snapshot cache read failed")
	}

	snap, err := r.next.GetSnapshot(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	r.store(ctx, snap)
	return snap, nil
}

func (r *CachedChannelRepository) ListSnapshots(ctx context.Context) ([]*domain.ChannelSnapshot, error) {
	return r.next.ListSnapshots(ctx)
}

func (r *CachedChannelRepository) DeleteSnapshot(ctx context.Context, symbol, interval string) error {
	if err := r.next.DeleteSnapshot(ctx, symbol, interval); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, cacheKey(symbol, interval)).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("snapshot cache delete failed")
	}
	return nil
}

func (r *CachedChannelRepository) store(ctx context.Context, snap *domain.ChannelSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, cacheKey(snap.Symbol, snap.Interval), raw, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", snap.Symbol).Str("interval", snap.Interval).Msg("snapshot cache write failed")
	}
}

// compile-time check
var _ domain.ChannelRepository = (*CachedChannelRepository)(nil)

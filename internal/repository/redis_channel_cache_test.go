package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-backend/internal/domain"
)

type mockRedis struct {
	redis.Cmdable

	data    map[string]string
	gets    int
	failGet bool
}

func newMockRedis() *mockRedis {
	return &mockRedis{data: make(map[string]string)}
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.gets++
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCachedChannelRepository(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemoryChannelRepository()
	rdb := newMockRedis()
	repo := NewCachedChannelRepository(backing, rdb, time.Minute)

	require.NoError(t, repo.SaveSnapshot(ctx, sampleSnapshot("BTCUSDT", "1d", 42000)))
	assert.Contains(t, rdb.data, "channel:snapshot:BTCUSDT:1d")

	// Served from the cache even when the backing store lost it.
	require.NoError(t, backing.DeleteSnapshot(ctx, "BTCUSDT", "1d"))
	got, err := repo.GetSnapshot(ctx, "BTCUSDT", "1d")
	require.NoError(t, err)
	assert.Equal(t, 42000.0, got.LastPrice)
	assert.Len(t, got.Bands.Middle, 1)

	// Misses fall through and populate the cache.
	require.NoError(t, backing.SaveSnapshot(ctx, sampleSnapshot("ETHUSDT", "1h", 2000)))
	got, err = repo.GetSnapshot(ctx, "ETHUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.LastPrice)
	assert.Contains(t, rdb.data, "channel:snapshot:ETHUSDT:1h")

	require.NoError(t, repo.DeleteSnapshot(ctx, "ETHUSDT", "1h"))
	assert.NotContains(t, rdb.data, "channel:snapshot:ETHUSDT:1h")
	_, err = repo.GetSnapshot(ctx, "ETHUSDT", "1h")
	assert.True(t, errors.Is(err, domain.ErrSnapshotNotFound))
}

func TestCachedChannelRepository_CacheErrorFallsBack(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemoryChannelRepository()
	require.NoError(t, backing.SaveSnapshot(ctx, sampleSnapshot("SOLUSDT", "4h", 100)))

	rdb := newMockRedis()
	rdb.failGet = true
	repo := NewCachedChannelRepository(backing, rdb, time.Minute)

	got, err := repo.GetSnapshot(ctx, "SOLUSDT", "4h")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.LastPrice)
	assert.Equal(t, 1, rdb.gets)
}

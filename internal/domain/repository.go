package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig    = errors.New("invalid channel config")
	ErrSnapshotNotFound = errors.New("channel snapshot not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

// ChannelRepository stores the latest snapshot per symbol and interval.
// Implementations: in-memory (for dev), Postgres (for production) and a
// Redis cache that wraps either.
type ChannelRepository interface {
	SaveSnapshot(ctx context.Context, snap *ChannelSnapshot) error
	GetSnapshot(ctx context.Context, symbol, interval string) (*ChannelSnapshot, error)
	ListSnapshots(ctx context.Context) ([]*ChannelSnapshot, error)
	DeleteSnapshot(ctx context.Context, symbol, interval string) error
}

// KlineSource provides bars for a symbol.
type KlineSource interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Bar, error)
}

// Notifier pushes alerts to registered devices.
type Notifier interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

package repository

import (
	"context"
	"sort"
	"sync"

	"channel-backend/internal/domain"
)

type InMemoryChannelRepository struct {
	snapshots map[string]domain.ChannelSnapshot
	mu        sync.RWMutex
}

func NewInMemoryChannelRepository() *InMemoryChannelRepository {
	return &InMemoryChannelRepository{
		snapshots: make(map[string]domain.ChannelSnapshot),
	}
}

func (r *InMemoryChannelRepository) SaveSnapshot(_ context.Context, snap *domain.ChannelSnapshot) error {
	if snap == nil {
		return errNilSnapshot
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Snapshots are replaced whole on every evaluation.
	r.snapshots[snap.Key()] = *snap
	return nil
}

func (r *InMemoryChannelRepository) GetSnapshot(_ context.Context, symbol, interval string) (*domain.ChannelSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snapshots[domain.SnapshotKey(symbol, interval)]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return &snap, nil
}

func (r *InMemoryChannelRepository) ListSnapshots(_ context.Context) ([]*domain.ChannelSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.ChannelSnapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		snap := s
		result = append(result, &snap)
	}
	sortSnapshots(result)
	return result, nil
}

func (r *InMemoryChannelRepository) DeleteSnapshot(_ context.Context, symbol, interval string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, domain.SnapshotKey(symbol, interval))
	return nil
}

func sortSnapshots(s []*domain.ChannelSnapshot) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Symbol != s[j].Symbol {
			return s[i].Symbol < s[j].Symbol
		}
		return s[i].Interval < s[j].Interval
	})
}

// compile-time check
var _ domain.ChannelRepository = (*InMemoryChannelRepository)(nil)

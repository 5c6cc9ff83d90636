package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"channel-backend/internal/domain"
)

var errNilSnapshot = errors.New("nil snapshot")

// PostgresChannelRepository keeps the latest snapshot per (symbol, interval).
// Config and bands are stored as jsonb; the fit summary is duplicated into
// plain columns for querying.
type PostgresChannelRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresChannelRepository(pool *pgxpool.Pool) *PostgresChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

func (r *PostgresChannelRepository) SaveSnapshot(ctx context.Context, snap *domain.ChannelSnapshot) error {
	if snap == nil {
		return errNilSnapshot
	}

	configJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	bandsJSON, err := json.Marshal(snap.Bands)
	if err != nil {
		return fmt.Errorf("marshal bands: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		insert into channel_snapshots(
			symbol, interval, config, bands, last_price, position,
			slope, intercept, std_dev, computed_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (symbol, interval) do update set
			config = excluded.config,
			bands = excluded.bands,
			last_price = excluded.last_price,
			position = excluded.position,
			slope = excluded.slope,
			intercept = excluded.intercept,
			std_dev = excluded.std_dev,
			computed_at = excluded.computed_at
	`,
		snap.Symbol,
		snap.Interval,
		configJSON,
		bandsJSON,
		snap.LastPrice,
		string(snap.Position),
		snap.Bands.Fit.Slope,
		snap.Bands.Fit.Intercept,
		snap.Bands.Fit.StdDev,
		snap.ComputedAt,
	)
	return err
}

func (r *PostgresChannelRepository) GetSnapshot(ctx context.Context, symbol, interval string) (*domain.ChannelSnapshot, error) {
	row := r.pool.QueryRow(ctx, `
		select symbol, interval, config, bands, last_price, position, computed_at
		from channel_snapshots
		where symbol = $1 and interval = $2
	`, symbol, interval)

	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *PostgresChannelRepository) ListSnapshots(ctx context.Context) ([]*domain.ChannelSnapshot, error) {
	rows, err := r.pool.Query(ctx, `
		select symbol, interval, config, bands, last_price, position, computed_at
		from channel_snapshots
		order by symbol, interval
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := make([]*domain.ChannelSnapshot, 0)
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (r *PostgresChannelRepository) DeleteSnapshot(ctx context.Context, symbol, interval string) error {
	_, err := r.pool.Exec(ctx, `delete from channel_snapshots where symbol=$1 and interval=$2`, symbol, interval)
	return err
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (*domain.ChannelSnapshot, error) {
	var snap domain.ChannelSnapshot
	var configJSON, bandsJSON []byte
	var position string

	if err := s.Scan(
		&snap.Symbol,
		&snap.Interval,
		&configJSON,
		&bandsJSON,
		&snap.LastPrice,
		&position,
		&snap.ComputedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &snap.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(bandsJSON, &snap.Bands); err != nil {
		return nil, fmt.Errorf("decode bands: %w", err)
	}
	snap.Position = domain.BandPosition(position)
	return &snap, nil
}

// compile-time check
var _ domain.ChannelRepository = (*PostgresChannelRepository)(nil)

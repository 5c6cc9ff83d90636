package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables needed by this app.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists channel_snapshots (
			symbol text not null,
			interval text not null,
			config jsonb not null,
			bands jsonb not null,
			last_price double precision not null default 0,
			position text not null default 'UNKNOWN',
			slope double precision not null default 0,
			intercept double precision not null default 0,
			std_dev double precision not null default 0,
			computed_at timestamptz not null,
			primary key (symbol, interval)
		);`,
		`create index if not exists channel_snapshots_computed_at_idx on channel_snapshots(computed_at desc);`,
		`create index if not exists channel_snapshots_position_idx on channel_snapshots(position);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

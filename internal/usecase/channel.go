package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"channel-backend/internal/config"
	"channel-backend/internal/domain"
	"channel-backend/internal/infrastructure/indicators"
	"channel-backend/internal/repository"
)

type ChannelUsecase struct {
	repo      domain.ChannelRepository
	source    domain.KlineSource
	notifier  domain.Notifier
	tokenRepo *repository.TokenRepository
	watchlist config.WatchlistConfig
	defaults  domain.ChannelConfig
	now       func() time.Time

	notified map[string]time.Time // snapshot key -> last alert
	mu       sync.RWMutex
}

func NewChannelUsecase(
	repo domain.ChannelRepository,
	source domain.KlineSource,
	notifier domain.Notifier,
	tokenRepo *repository.TokenRepository,
	watchlist config.WatchlistConfig,
	defaults domain.ChannelConfig,
) *ChannelUsecase {
	return &ChannelUsecase{
		repo:      repo,
		source:    source,
		notifier:  notifier,
		tokenRepo: tokenRepo,
		watchlist: watchlist,
		defaults:  defaults,
		now:       time.Now,
		notified:  make(map[string]time.Time),
	}
}

// Defaults returns the channel settings used when a request carries none.
func (uc *ChannelUsecase) Defaults() domain.ChannelConfig {
	return uc.defaults
}

// ComputeChannel validates cfg and runs one channel pass over bars.
func ComputeChannel(bars []domain.Bar, cfg domain.ChannelConfig) (domain.ChannelBands, error) {
	if err := cfg.Validate(); err != nil {
		return domain.ChannelBands{}, err
	}
	return indicators.CalculateRegressionChannel(bars, cfg), nil
}

// Evaluate fetches bars for symbol/interval, computes the channel and stores
// the snapshot. A nil cfg uses the configured defaults. An empty channel is
// stored like any other result.
func (uc *ChannelUsecase) Evaluate(ctx context.Context, symbol, interval string, cfg *domain.ChannelConfig) (*domain.ChannelSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidRequest)
	}
	if !config.ValidInterval(interval) {
		return nil, fmt.Errorf("%w: unsupported interval %q", domain.ErrInvalidRequest, interval)
	}

	c := uc.defaults
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	bars, err := uc.source.GetKlines(ctx, symbol, interval, uc.watchlist.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}

	bands := indicators.CalculateRegressionChannel(bars, c)
	snap := &domain.ChannelSnapshot{
		Symbol:     symbol,
		Interval:   interval,
		Config:     c,
		Bands:      bands,
		Position:   domain.PositionUnknown,
		ComputedAt: uc.now().UTC(),
	}
	if len(bars) > 0 {
		last := len(bars) - 1
		snap.LastPrice = bars[last].Price(c.Price)
		snap.Position = classifyPosition(bands, last, snap.LastPrice)
	}

	if err := uc.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

// classifyPosition places price against the channel at bar index i. A
// negative multiplier swaps the lines, so the outer values are compared.
func classifyPosition(bands domain.ChannelBands, i int, price float64) domain.BandPosition {
	upper, _, lower, ok := bands.At(i)
	if !ok {
		return domain.PositionUnknown
	}
	hi, lo := max(upper, lower), min(upper, lower)
	switch {
	case price > hi:
		return domain.PositionAboveUpper
	case price < lo:
		return domain.PositionBelowLower
	default:
		return domain.PositionInside
	}
}

// Run re-evaluates the watchlist until ctx is done.
func (uc *ChannelUsecase) Run(ctx context.Context) {
	ticker := time.NewTicker(uc.watchlist.PollInterval)
	defer ticker.Stop()

	uc.process(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.process(ctx)
		}
	}
}

func (uc *ChannelUsecase) process(ctx context.Context) []*domain.ChannelSnapshot {
	start := time.Now()
	log.Debug().Msg("starting channel cycle")

	var snaps []*domain.ChannelSnapshot
	var wg sync.WaitGroup
	var mu sync.Mutex

	concurrency := uc.watchlist.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	for _, sym := range uc.watchlist.Symbols {
		for _, iv := range uc.watchlist.Intervals {
			wg.Add(1)
			go func(symbol, interval string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				snap, err := uc.Evaluate(ctx, symbol, interval, nil)
				if err != nil {
					log.Error().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("channel evaluation failed")
					return
				}
				if snap.Bands.Empty() {
					log.Debug().Str("symbol", symbol).Str("interval", interval).Msg("empty channel")
				}

				mu.Lock()
				snaps = append(snaps, snap)
				mu.Unlock()
			}(sym, iv)
		}
	}

	wg.Wait()

	uc.sendBreachNotifications(ctx, snaps)

	log.Info().
		Dur("took", time.Since(start)).
		Int("channels", len(snaps)).
		Msg("channel cycle completed")
	return snaps
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"channel-backend/internal/config"
	delivery "channel-backend/internal/delivery/http"
	"channel-backend/internal/delivery/websocket"
	"channel-backend/internal/domain"
	"channel-backend/internal/infrastructure/binance"
	"channel-backend/internal/infrastructure/db"
	"channel-backend/internal/infrastructure/fcm"
	"channel-backend/internal/logging"
	"channel-backend/internal/repository"
	"channel-backend/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// 1. Initialize Repository
	repo, cleanup, err := newChannelRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tokenRepo := repository.NewTokenRepository()

	fcmClient, err := fcm.NewClient(ctx, cfg.Firebase.CredentialsPath, cfg.Firebase.CredentialsJSON)
	if err != nil {
		return err
	}

	binanceClient := binance.NewClient(binance.Options{
		BaseURL:           cfg.Binance.BaseURL,
		RequestsPerSecond: cfg.Binance.RequestsPerSecond,
		Burst:             cfg.Binance.Burst,
		Timeout:           cfg.Binance.Timeout,
	})

	// 2. Initialize Usecase
	uc := usecase.NewChannelUsecase(repo, binanceClient, fcmClient, tokenRepo, cfg.Watchlist, cfg.Channel)

	// 3. Start channel loop in background
	go uc.Run(ctx)

	// 4. Initialize Delivery
	mux := http.NewServeMux()
	delivery.Register(mux, delivery.NewChannelHandler(uc, repo), delivery.NewTokenHandler(tokenRepo))
	mux.HandleFunc("/ws", websocket.NewHandler(repo, cfg.Server.WSPushInterval).Handle)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newChannelRepository picks Postgres when a database URL is configured and
// memory otherwise, then puts Redis in front when an address is set.
func newChannelRepository(ctx context.Context, cfg *config.Config) (domain.ChannelRepository, func(), error) {
	var repo domain.ChannelRepository = repository.NewInMemoryChannelRepository()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database.URL, db.PoolConfig{
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := db.Migrate(ctx, pool); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate database: %w", err)
		}
		repo = repository.NewPostgresChannelRepository(pool)
		log.Info().Msg("using Postgres snapshot store")
	} else {
		log.Info().Msg("no database configured, using in-memory snapshot store")
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { rdb.Close() })
		repo = repository.NewCachedChannelRepository(repo, rdb, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("snapshot cache enabled")
	}

	return repo, cleanup, nil
}

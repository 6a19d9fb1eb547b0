package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	memoryRepo "github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/adapter/rest"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Driver: cfg.PersistenceDriver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}

	appLogger.Info().Msg("server stopped")
}

// stores are the persistence adapters picked by PERSISTENCE_DRIVER.
type stores struct {
	accounts  usecase.AccountStore
	movements usecase.MovementStore
	directory usecase.AccountDirectory
	accountID usecase.IDGenerator
	checks    map[string]handler.Checker
	close     func()
}

// sideStores hold session, idempotency and event state, in Redis when configured.
type sideStores struct {
	selections  usecase.SelectionStore
	idempotency usecase.IdempotencyStore
	events      eventpublisher.Sink
	check       handler.Checker
	close       func()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.New(reg)

	primary, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer primary.close()

	side, err := openSideStores(ctx, cfg, primary.accounts, logger)
	if err != nil {
		return err
	}
	defer side.close()

	dispatcher := eventpublisher.NewDispatcher(eventpublisher.Config{
		Sink:   side.events,
		Logger: logger,
		Buffer: cfg.EventsBuffer,
		OnDrop: ledgerMetrics.EventsDropped.Inc,
	})
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Start(dispatchCtx)
	}()
	defer func() {
		stopDispatch()
		<-dispatchDone
	}()

	// Initialize use cases
	ledgerUC := usecase.NewLedgerUseCase(usecase.LedgerConfig{
		Accounts:  primary.accounts,
		Movements: primary.movements,
		Retrier: retry.NewRetrier(
			retry.WithMaxRetries(cfg.ReconcileMaxRetries),
			retry.WithLogger(logger),
		),
		Events:      dispatcher,
		Recorder:    ledgerMetrics,
		Logger:      logger,
		CallTimeout: cfg.UpstreamTimeout,
	})
	accountUC := usecase.NewAccountUseCase(usecase.AccountConfig{
		Directory:   primary.directory,
		Movements:   primary.movements,
		IDGen:       primary.accountID,
		Events:      dispatcher,
		Logger:      logger,
		CallTimeout: cfg.UpstreamTimeout,
	})
	sessionUC := usecase.NewSessionUseCase(side.selections, primary.accounts, cfg.SessionTTL)

	// Initialize handlers
	ledgerHandler := handler.NewLedgerHandler(ledgerUC)
	checks := primary.checks
	if side.check != nil {
		checks["redis"] = side.check
	}

	routerCfg := httpAdapter.RouterConfig{
		LedgerHandler:    ledgerHandler,
		AccountHandler:   handler.NewAccountHandler(accountUC),
		SessionHandler:   handler.NewSessionHandler(sessionUC, ledgerHandler),
		HealthHandler:    handler.NewHealthHandler(checks),
		IdempotencyStore: side.idempotency,
		HTTPMetrics:      middleware.NewHTTPMetrics(reg),
		Gatherer:         reg,
		Logger:           logger,
	}
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		routerCfg.RateLimiter = limiter
		go cleanupLimiters(ctx, limiter)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.HTTPPort).
			Str("driver", cfg.PersistenceDriver).
			Bool("redis", cfg.RedisEnabled()).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.PersistenceDriver {
	case config.DriverREST:
		client, err := rest.NewClient(rest.Config{
			BaseURL:    cfg.PersistenceURL,
			HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
			Retrier: retry.NewRetrier(
				retry.WithMaxRetries(cfg.ReconcileMaxRetries),
				retry.WithClassifier(func(err error) bool { return errors.Is(err, domain.ErrUpstreamUnavailable) }),
				retry.WithLogger(logger),
			),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("url", cfg.PersistenceURL).Msg("using persistence service")

		// The service keys accounts by number.
		return &stores{
			accounts:  client,
			movements: client,
			directory: client,
			accountID: memoryRepo.NewSequenceGenerator(time.Now().UnixMilli()),
			checks:    map[string]handler.Checker{"persistence": client.Ping},
			close:     func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.DatabaseMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL, logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info().Msg("connected to postgres")

		accounts := postgresRepo.NewAccountRepository(pool)
		return &stores{
			accounts:  accounts,
			movements: postgresRepo.NewMovementRepository(pool, postgresRepo.NewULIDGenerator()),
			directory: accounts,
			accountID: postgresRepo.NewULIDGenerator(),
			checks:    map[string]handler.Checker{"postgres": pool.Ping},
			close:     pool.Close,
		}, nil

	case config.DriverMemory:
		store := memoryRepo.NewStore(postgresRepo.NewULIDGenerator())
		seedDemoAccounts(store)
		logger.Warn().Msg("using in-memory store, data is lost on restart")

		return &stores{
			accounts:  store,
			movements: store,
			directory: store,
			accountID: postgresRepo.NewULIDGenerator(),
			checks:    map[string]handler.Checker{},
			close:     func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.PersistenceDriver)
	}
}

func openSideStores(ctx context.Context, cfg *config.Config, accounts usecase.AccountStore, logger zerolog.Logger) (*sideStores, error) {
	if !cfg.RedisEnabled() {
		logger.Info().Msg("redis disabled, keeping sessions and idempotency keys in memory")

		selections := memoryRepo.NewStore(memoryRepo.NewSequenceGenerator(1))
		if s, ok := accounts.(*memoryRepo.Store); ok {
			selections = s
		}
		return &sideStores{
			selections:  selections,
			idempotency: memoryRepo.NewIdempotencyStore(),
			events:      eventpublisher.NewLogPublisher(logger),
			close:       func() {},
		}, nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	return &sideStores{
		selections:  redisRepo.NewSelectionStore(client),
		idempotency: redisRepo.NewIdempotencyStore(client),
		events:      redisRepo.NewEventPublisher(client, cfg.EventsChannel),
		check:       func(ctx context.Context) error { return redis.Ping(ctx, client) },
		close:       func() { closeRedis(client, logger) },
	}, nil
}

func closeRedis(client *goredis.Client, logger zerolog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close redis client")
	}
}

// seedDemoAccounts gives the in-memory driver one account of each type.
func seedDemoAccounts(store *memoryRepo.Store) {
	opened := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.PutAccount(domain.Account{
		ID:               "1",
		Description:      "Current account",
		CustomerID:       "1",
		OpeningBalance:   decimal.NewFromInt(1000),
		OpeningBalanceAt: opened,
		CurrentBalance:   decimal.NewFromInt(1000),
	})
	store.PutAccount(domain.Account{
		ID:               "2",
		Description:      "Credit account",
		CustomerID:       "1",
		OpeningBalance:   decimal.Zero,
		OpeningBalanceAt: opened,
		CreditLine:       decimal.NewFromInt(500),
		CurrentBalance:   decimal.Zero,
	})
}

func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.CleanupLimiters(time.Hour)
		}
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/catalog"
	"github.com/fairyhunter13/giftlink/internal/codegen"
	"github.com/fairyhunter13/giftlink/internal/config"
	"github.com/fairyhunter13/giftlink/internal/handler"
	"github.com/fairyhunter13/giftlink/internal/metrics"
	"github.com/fairyhunter13/giftlink/internal/payment"
	"github.com/fairyhunter13/giftlink/internal/repository"
	"github.com/fairyhunter13/giftlink/internal/service"
	"github.com/fairyhunter13/giftlink/internal/validator"
	"github.com/fairyhunter13/giftlink/pkg/auth"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

// orderStore is what the server needs from a storage backend.
type orderStore interface {
	service.OrderStore
	service.LedgerReader
	handler.Pinger
}

// memoryBackend exposes the in-process ledger through the store.
type memoryBackend struct {
	*repository.MemoryOrderStore
	*repository.MemoryLedger
}

// postgresBackend pairs the order repository with its ledger.
type postgresBackend struct {
	*repository.OrderRepository
	*repository.LedgerRepository
}

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	cat, err := catalog.LoadFile(cfg.Catalog.Path, cfg.Password.ArgonParams())
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("failed to load catalog")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open order store")
	}

	sessions, redisClient, err := openSessions(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	// Services (layered architecture)
	factory := service.NewOrderFactory(store, cat, cat, codegen.New(), orderMetrics, cfg.Order.CodeMaxAttempts)
	checkoutService := service.NewCheckoutService(factory, payment.NewMockProvider())
	orderService := service.NewOrderService(store, store)
	redemptionService := service.NewRedemptionService(store, orderMetrics)
	authService := service.NewAuthService(cat, sessions, cfg.JWT.TokenConfig())
	sweeper := service.NewExpirySweeper(store, orderService, orderMetrics, cfg.Order.ExpirySweepInterval, cfg.Order.ExpirySweepBatch)

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "GiftLink",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	validate := validator.New()

	checks := map[string]handler.Pinger{"store": store}
	if redisClient != nil {
		checks["sessions"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	handler.RegisterRoutes(app, handler.Handlers{
		Health:   handler.NewHealthHandler(checks),
		Orders:   handler.NewOrderHandler(checkoutService, orderService, validate),
		Merchant: handler.NewMerchantHandler(authService, orderService, redemptionService, validate),
		Catalog:  handler.NewCatalogHandler(cat),
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Expire overdue orders in the background until shutdown
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		if err := sweeper.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("expiry sweeper stopped")
		}
	}()

	// Start server with graceful shutdown
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("store_backend", cfg.Store.Backend).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	stopSweeper()
	select {
	case <-sweeperDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("expiry sweeper did not stop before shutdown timeout")
	}

	// Close backends AFTER server shutdown (even if shutdown timed out)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}
	closeStore()
	log.Info().Msg("server stopped")
}

// openStore builds the configured order store and returns its cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (orderStore, func(), error) {
	if cfg.Store.Backend == config.StoreBackendMemory {
		log.Warn().Msg("using in-memory order store; orders are lost on restart")
		ledger := repository.NewMemoryLedger()
		return memoryBackend{
			MemoryOrderStore: repository.NewMemoryOrderStore(ledger),
			MemoryLedger:     ledger,
		}, func() {}, nil
	}

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.PoolConfig())
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(ctx, pool, "up"); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	ledger := repository.NewLedgerRepository(pool)
	closeFn := func() {
		log.Info().Msg("closing database connections...")
		pool.Close()
		log.Info().Msg("database connections closed")
	}
	return postgresBackend{
		OrderRepository:  repository.NewOrderRepository(pool, ledger),
		LedgerRepository: ledger,
	}, closeFn, nil
}

// openSessions returns a Redis-backed session store when Redis is configured
// and an in-process one otherwise.
func openSessions(ctx context.Context, cfg *config.Config) (auth.SessionStore, *redis.Client, error) {
	if !cfg.Redis.Enabled() {
		log.Warn().Msg("REDIS_ADDR not set; merchant sessions are kept in memory")
		return auth.NewMemorySessionStore(), nil, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.Redis.ClientConfig())
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisSessionStore(client), client, nil
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

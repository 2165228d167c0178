package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/authz"
	"github.com/phonginreallife/taskboard/internal/config"
	"github.com/phonginreallife/taskboard/internal/metrics"
	"github.com/phonginreallife/taskboard/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

Environment Variables:
  DATABASE_URL    - PostgreSQL connection string (postgres store)
  REDIS_URL       - Redis URL for the role cache (optional)
  JWT_SECRET      - HS256 secret used to verify bearer tokens
  STORE_DRIVER    - postgres (default) or memory
  ROLE_CACHE_TTL  - role cache TTL, e.g. 5m (0 disables the cache)
  PORT            - listen port (default 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.App
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer backend.Close()

	gin.SetMode(gin.ReleaseMode)
	r := router.NewGinRouter(router.Deps{
		Store:     backend.Store,
		Logger:    logger,
		Metrics:   m,
		JWTSecret: cfg.JWTSecret,
		DB:        backend.DB,
		Redis:     backend.Redis,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// backend is the storage stack selected by configuration
type backend struct {
	Store authz.Store
	DB    *sql.DB
	Redis *redis.Client
}

func (b *backend) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.DB != nil {
		_ = b.DB.Close()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*backend, error) {
	b := &backend{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		b.Store = authz.NewMemoryStore()
	default:
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.DB = db
		b.Store = authz.NewSimpleStore(db)
	}

	if cfg.RedisURL != "" && cfg.RoleCacheTTL > 0 {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			b.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.Redis = rdb
		b.Store = authz.NewCachedStore(b.Store, rdb, cfg.RoleCacheTTL, logger.Named("role_cache"), m)
		logger.Info("role cache enabled", zap.Duration("ttl", cfg.RoleCacheTTL))
	}

	return b, nil
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return db, nil
}

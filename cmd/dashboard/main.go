package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	httpadapter "github.com/fixora/analytics/internal/adapter/http"
	"github.com/fixora/analytics/internal/adapter/persistence"
	"github.com/fixora/analytics/internal/adapter/synthetic"
	"github.com/fixora/analytics/internal/config"
	"github.com/fixora/analytics/internal/infra/auth"
	"github.com/fixora/analytics/internal/infra/events"
	"github.com/fixora/analytics/internal/infra/http/middleware"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/metrics"
	"github.com/fixora/analytics/internal/infra/ratelimit"
	"github.com/fixora/analytics/internal/infra/sequence"
	"github.com/fixora/analytics/internal/infra/sse"
	"github.com/fixora/analytics/internal/ports"
	"github.com/fixora/analytics/internal/usecase"
)

// Version and build information
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	var (
		version    = flag.Bool("version", false, "Show version information")
		migrate    = flag.Bool("migrate", false, "Apply the database schema and exit")
		seed       = flag.Bool("seed", false, "Seed the database with sample records and exit")
		seedMonths = flag.Int("seed-months", 12, "Months of history written by -seed")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Fixora ITSM Analytics\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "fixora-analytics",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if envErr != nil {
		log.Debug(ctx, "No .env file loaded", map[string]interface{}{"error": envErr.Error()})
	}
	log.Info(ctx, "Starting Fixora ITSM Analytics", map[string]interface{}{
		"version":     Version,
		"environment": cfg.Server.Environment,
		"data_source": cfg.Dashboard.DataSource,
	})

	var db *sql.DB
	if cfg.Dashboard.DataSource == config.DataSourcePostgres || *migrate || *seed {
		db, err = initDatabase(ctx, cfg, log)
		if err != nil {
			fatal(ctx, log, "Failed to initialize database", err)
		}
		defer db.Close()
	}

	if *migrate {
		if err := persistence.Migrate(ctx, db); err != nil {
			fatal(ctx, log, "Failed to run migrations", err)
		}
		log.Info(ctx, "Migrations completed successfully", nil)
		return
	}

	if *seed {
		if err := persistence.Migrate(ctx, db); err != nil {
			fatal(ctx, log, "Failed to run migrations", err)
		}
		seeder := usecase.NewRecordSeeder(
			persistence.NewPostgresMetricsRepository(db),
			valueSource(cfg),
			ports.SystemClock,
			log,
		)
		if _, err := seeder.Seed(ctx, *seedMonths); err != nil {
			fatal(ctx, log, "Failed to seed database", err)
		}
		return
	}

	redisClient := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.NewMetrics()

	streamer := sse.NewStreamer(sse.Config{
		HeartbeatInterval: cfg.SSE.HeartbeatInterval,
		MessageBufferSize: cfg.SSE.MessageBufferSize,
		MaxConnections:    cfg.SSE.MaxConnections,
	})
	streamer.Start(ctx)

	publisher := events.NewPublisher(events.KafkaConfig{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, log)
	defer publisher.Close()

	coordinator, err := initCoordinator(cfg, db, redisClient, publisher, streamer, log, m)
	if err != nil {
		fatal(ctx, log, "Failed to initialize dashboard", err)
	}

	server, err := initHTTPServer(cfg, db, coordinator, redisClient, streamer, log, m)
	if err != nil {
		fatal(ctx, log, "Failed to initialize HTTP server", err)
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fatal(ctx, log, "Failed to start server", err)
		}
	}()

	// Load the default window up front so the first request is served warm
	go func() {
		if _, err := coordinator.Current(ctx); err != nil {
			log.Warn(ctx, "Initial dashboard load failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Error during server shutdown", err, nil)
	}

	log.Info(shutdownCtx, "Server stopped successfully", nil)
}

func fatal(ctx context.Context, log logger.Logger, message string, err error) {
	log.Error(ctx, message, err, nil)
	os.Exit(1)
}

// initDatabase initializes the database connection
func initDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info(ctx, "Database connection established", map[string]interface{}{
		"host": cfg.Database.Host,
		"name": cfg.Database.DBName,
	})
	return db, nil
}

// initRedis connects to Redis when it is enabled. Without Redis the refresh
// sequence is kept in memory and rate limiting is off.
func initRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.GetRedisAddr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "Redis unavailable, continuing without it", map[string]interface{}{
			"addr":  cfg.GetRedisAddr(),
			"error": err.Error(),
		})
		client.Close()
		return nil
	}

	log.Info(ctx, "Redis connection established", map[string]interface{}{"addr": cfg.GetRedisAddr()})
	return client
}

func valueSource(cfg *config.Config) ports.ValueSource {
	if cfg.Dashboard.Seed != 0 {
		return synthetic.NewSeededSource(cfg.Dashboard.Seed)
	}
	return synthetic.NewRandomSource()
}

// initCoordinator builds the snapshot provider for the configured data
// source and the coordinator serving it
func initCoordinator(
	cfg *config.Config,
	db *sql.DB,
	redisClient *redis.Client,
	publisher ports.EventPublisher,
	streamer *sse.Streamer,
	log logger.Logger,
	m *metrics.Metrics,
) (*usecase.RefreshCoordinator, error) {
	var provider ports.SnapshotProvider
	switch cfg.Dashboard.DataSource {
	case config.DataSourcePostgres:
		provider = usecase.NewRecordsProvider(persistence.NewPostgresMetricsRepository(db), ports.SystemClock)
	default:
		provider = synthetic.NewProvider(valueSource(cfg), ports.SystemClock)
	}

	defaultSpec, err := cfg.DefaultWindow()
	if err != nil {
		return nil, err
	}

	builder := usecase.NewDashboardUseCase(provider, cfg.Dashboard.SLATarget, log, m).
		WithTimeout(cfg.Dashboard.GenerationTimeout)

	var broadcaster ports.Broadcaster
	if cfg.SSE.Enabled {
		broadcaster = streamer
	}

	return usecase.NewRefreshCoordinator(
		builder,
		sequence.New(redisClient),
		publisher,
		broadcaster,
		defaultSpec,
		log,
		m,
	), nil
}

// initHTTPServer initializes the HTTP server
func initHTTPServer(
	cfg *config.Config,
	db *sql.DB,
	coordinator *usecase.RefreshCoordinator,
	redisClient *redis.Client,
	streamer *sse.Streamer,
	log logger.Logger,
	m *metrics.Metrics,
) (*httpadapter.Server, error) {
	var authMw *middleware.AuthMiddleware
	if cfg.Security.AuthEnabled {
		tokens, err := auth.NewJWTService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
		if err != nil {
			return nil, err
		}
		authMw = middleware.NewAuthMiddleware(tokens, log)
	}

	limiter := ratelimit.NewRateLimitService(ratelimit.Config{
		Enabled:       cfg.Security.RateLimitEnabled,
		Requests:      cfg.Security.RateLimitRequests,
		Window:        cfg.Security.RateLimitWindow,
		BlockDuration: cfg.Security.RateLimitBlockTime,
	}, redisClient, log)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, middleware.RateLimitPolicy{
		Limit:         cfg.Security.RateLimitRequests,
		Window:        cfg.Security.RateLimitWindow,
		BlockDuration: cfg.Security.RateLimitBlockTime,
	}, log)

	var stream http.HandlerFunc
	if cfg.SSE.Enabled {
		stream = streamer.HandleSSE
	}

	handler := httpadapter.NewDashboardHandler(coordinator, authMw, rateLimitMw, stream, log)

	var checks []httpadapter.HealthCheck
	if cfg.Dashboard.DataSource == config.DataSourcePostgres {
		checks = append(checks, httpadapter.HealthCheck{
			Name:   "database",
			Pinger: persistence.NewPostgresMetricsRepository(db),
		})
	}
	health := httpadapter.NewHealthHandler(log, checks...)

	return httpadapter.NewServer(httpadapter.ServerConfig{
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowCredentials: cfg.Security.CORSCredentials,
	}, handler, health, m, log), nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/telhawk-systems/mfa-sentinel/internal/config"
	"github.com/telhawk-systems/mfa-sentinel/internal/dispatch"
	"github.com/telhawk-systems/mfa-sentinel/internal/handlers"
	"github.com/telhawk-systems/mfa-sentinel/internal/logging"
	"github.com/telhawk-systems/mfa-sentinel/internal/metrics"
	"github.com/telhawk-systems/mfa-sentinel/internal/notification"
	"github.com/telhawk-systems/mfa-sentinel/internal/scheduler"
	"github.com/telhawk-systems/mfa-sentinel/internal/server"
	"github.com/telhawk-systems/mfa-sentinel/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("sentinel"))
	logging.SetDefault(logger)

	slog.Info("Starting MFA Sentinel",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("environment", cfg.Environment),
	)

	// Initialize incident store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	incidentStore, err := newStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize incident store: %v", err)
	}
	defer incidentStore.Close()

	// Initialize notification channel
	var channel notification.Channel
	if cfg.NATS.Enabled {
		natsCfg := notification.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		natsChannel, err := notification.NewNATSChannel(natsCfg)
		if err != nil {
			log.Printf("WARNING: Failed to connect to NATS: %v", err)
			log.Println("Falling back to log-based notifications")
			channel = notification.NewLogChannel(logger.Logger)
		} else {
			defer natsChannel.Close()
			channel = notification.NewMultiChannel(natsChannel, notification.NewLogChannel(logger.Logger))
			log.Printf("NATS notifications enabled (url: %s, prefix: %s)", cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		}
	} else {
		channel = notification.NewLogChannel(logger.Logger)
		log.Println("NATS disabled - notifications written to log")
	}

	// Initialize metrics sink
	sink := metrics.NewPrometheusSink()

	// Initialize dispatcher and remediation scheduler
	dispatcher := dispatch.New(incidentStore, channel, sink, cfg.Environment, logger)
	sched := scheduler.New(incidentStore, channel, sink, logger, scheduler.Config{
		Interval:    cfg.Remediation.Interval,
		Environment: cfg.Environment,
	})

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if cfg.Remediation.Enabled {
		if err := sched.Start(schedCtx); err != nil {
			log.Fatalf("Failed to start remediation scheduler: %v", err)
		}
		defer sched.Stop()
		log.Printf("Remediation scheduler enabled (interval: %s)", cfg.Remediation.Interval)
	} else {
		log.Println("Remediation scheduler disabled; use the API to trigger passes")
	}

	// Initialize HTTP handlers
	handler := handlers.New(dispatcher, sched, incidentStore, logger)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("MFA Sentinel listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// newStore selects and initializes the configured incident store backend.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return store.NewRedisStore(ctx, cfg.Storage.RedisURL)
	case "postgres":
		log.Println("Running database migrations...")
		m, err := migrate.New("file://migrations", cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Println("Database migrations completed")
		return store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
	case "memory":
		log.Println("WARNING: Using in-memory incident store; records are lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: redis, postgres, memory)", cfg.Storage.Backend)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Janus/internal/config"
	"github.com/BrandonDHaskell/Janus/internal/db"
	"github.com/BrandonDHaskell/Janus/internal/httpapi"
	"github.com/BrandonDHaskell/Janus/internal/janus/bus"
	"github.com/BrandonDHaskell/Janus/internal/janus/engine"
	"github.com/BrandonDHaskell/Janus/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/internal/janus/store/sqlite"
	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	defaultConfig := os.Getenv("JANUS_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "janus.yml"
	}
	configPath := flag.String("config", defaultConfig, "path to YAML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "janus-monitor ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	database, err := db.Open(ctx, db.Config{Path: cfg.DB.Path, Env: cfg.DB.Env})
	if err != nil {
		logger.Fatalf("db open: %v", err)
	}
	defer database.Close()

	writer := db.NewWorker(database)
	defer writer.Close()

	eventStore := sqlite.NewAccessEventStore(database, writer)
	lockStore := sqlite.NewLockStore(database, writer)

	// Event bus
	var publisher bus.Publisher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("redis url: %v", err)
		}
		publisher = bus.NewRedisPublisher(redis.NewClient(opts), logger)
		logger.Printf("publishing events to redis at %s", opts.Addr)
	} else {
		publisher = bus.NewMemoryPublisher()
		logger.Printf("no redis_url configured, events stay in process")
	}
	defer publisher.Close()

	// Nuki Web API
	client := nuki.NewClient(cfg.Nuki.BaseURL, cfg.Nuki.APIToken, logger)

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = client.TestConnection(connCtx)
	cancel()
	if err != nil {
		logger.Fatalf("nuki api: %v", err)
	}

	// Discovery
	locks, err := client.Smartlocks(ctx)
	if err != nil {
		logger.Fatalf("smartlock discovery: %v", err)
	}
	if len(locks) == 0 {
		logger.Fatalf("no smartlocks visible to this token")
	}

	if cfg.DB.Env == "dev" {
		// Pre-create the first lock's row so the API has data before
		// the first poll completes.
		if err := db.SeedDev(ctx, database, db.SeedDevOptions{
			LockID:   locks[0].SmartlockID,
			LockName: locks[0].Name,
		}); err != nil {
			logger.Printf("seed dev: %v", err)
		}
	}

	registry := service.NewLockRegistry()
	for _, lk := range locks {
		eng := engine.New(engine.Config{
			DetectionWindow:  time.Duration(cfg.DetectionWindowSeconds) * time.Second,
			FingerprintUsers: engine.Mapping(cfg.FingerprintUsers),
			EnhancedLogging:  cfg.EnhancedLogging,
		}, logger)

		m := service.NewLockMonitor(service.MonitorConfig{
			LockID:        lk.SmartlockID,
			LockName:      lk.Name,
			LogFetchLimit: cfg.LogFetchLimit,
		}, client, eng, eventStore, lockStore, publisher, logger)

		registry.Add(m)
		logger.Printf("monitoring smartlock %d (%s)", lk.SmartlockID, lk.Name)
	}

	// Background loops
	poller := service.NewPoller(registry, time.Duration(cfg.ScanIntervalSeconds)*time.Second, logger)
	poller.Start(ctx)
	defer poller.Stop()

	pruner := service.NewEventPruner(eventStore, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:       logger,
		Addr:         cfg.HTTPAddr,
		Registry:     registry,
		Events:       eventStore,
		AllowActions: cfg.AllowActions,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

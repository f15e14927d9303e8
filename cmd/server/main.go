package main

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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/app"
	"github.com/iliyamo/chinor-crm/internal/config"
	"github.com/iliyamo/chinor-crm/internal/database"
	"github.com/iliyamo/chinor-crm/internal/logger"
	"github.com/iliyamo/chinor-crm/internal/metrics"
	"github.com/iliyamo/chinor-crm/internal/notify"
	"github.com/iliyamo/chinor-crm/internal/queue"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/router"
	"github.com/iliyamo/chinor-crm/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chinor-crm:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, logger.ServiceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer func(c *redis.Client) { _ = c.Close() }(rdb)
	}

	svc := app.NewServices(stores, cfg, notify.NewWebhookClient(10*time.Second, log), log)
	if err := svc.Users.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	if cfg.AMQPURL != "" {
		svc.Broadcasts.SetPublisher(queue.NewAMQPPublisher(cfg.AMQPURL, log))
		go func() {
			if err := queue.StartDispatchConsumer(ctx, cfg.AMQPURL, svc.Dispatch, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("dispatch consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set, dispatching campaigns in process")
		svc.Broadcasts.SetPublisher(queue.NewInProcessPublisher(svc.Dispatch, log))
	}
	go func() {
		if n := svc.Broadcasts.RequeuePending(ctx); n > 0 {
			log.Info("requeued undispatched campaigns", zap.Int("count", n))
		}
	}()

	var ping func(context.Context) error
	if db != nil {
		ping = db.PingContext
	}
	e := router.New(svc.Handlers(ping), app.RouterOptions(cfg, rdb, log))

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("backend", cfg.DataBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStores returns the store bundle for the configured backend.  db is
// nil for the memory backend.
func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (service.Stores, *sql.DB, error) {
	if cfg.DataBackend == config.BackendMemory {
		log.Warn("using in-memory demo data; nothing is persisted")
		return service.MemoryStores(repository.NewSeededMemoryStore()), nil, nil
	}
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return service.Stores{}, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return service.Stores{}, nil, err
	}
	return service.MySQLStores(db), db, nil
}

package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/async"
	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/clock"
	"github.com/wemaster/booking-core/internal/config"
	dbpkg "github.com/wemaster/booking-core/internal/db"
	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/infra/lock"
	"github.com/wemaster/booking-core/internal/infra/notify"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/infra/repository"
	"github.com/wemaster/booking-core/internal/infra/storage"
	applog "github.com/wemaster/booking-core/internal/logger"
	"github.com/wemaster/booking-core/internal/routes"
	"github.com/wemaster/booking-core/internal/usecase"
	ucAppeal "github.com/wemaster/booking-core/internal/usecase/appeal"
	ucBooking "github.com/wemaster/booking-core/internal/usecase/booking"
	"github.com/wemaster/booking-core/internal/usecase/payment"
	"github.com/wemaster/booking-core/internal/worker"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := applog.New(cfg.Server.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbpkg.NewDB(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	migrator, err := dbpkg.NewMigrator(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("failed to open migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	_ = migrator.Close()

	// ======================================================
	// INFRA
	// ======================================================
	locker, deduper, closeRedis := newLocking(cfg.Redis, logger)
	defer closeRedis()

	gw, err := newGateway(cfg.Payment, logger)
	if err != nil {
		logger.Fatal("failed to init payment gateway", zap.Error(err))
	}

	evidence, err := newEvidenceStore(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init evidence storage", zap.Error(err))
	}

	broker, err := newBroker(cfg.Broker, logger)
	if err != nil {
		logger.Fatal("failed to init event broker", zap.Error(err))
	}

	dispatcher := audit.NewDispatcher(logger, audit.New(db), broker)
	pool := async.NewPool(logger, cfg.Worker.AsyncWorkers, cfg.Worker.AsyncQueue, cfg.Worker.AsyncTimeout)

	deps := usecase.Deps{
		Store:  repository.NewGormStore(db),
		Locker: locker,
		Events: dispatcher,
		Async:  pool,
		Clock:  clock.Real{},
		Log:    logger,
	}
	payments := payment.NewService(deps, gw, deduper, cfg.Payment.Currency, cfg.Payment.RetryBase)

	// ======================================================
	// HTTP
	// ======================================================
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	routes.RegisterRoutes(r, routes.Dependencies{
		DB:            db,
		Usecase:       deps,
		Payments:      payments,
		Payouts:       gw,
		Evidence:      evidence,
		Pricing:       cfg.PricingConfig(),
		Policy:        cfg.Policy(),
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.Payment.WebhookSecret,
		Log:           logger,
	})

	// ======================================================
	// DEADLINE SWEEPER
	// ======================================================
	bookingDeps := ucBooking.Deps{Deps: deps, Pricing: cfg.PricingConfig(), Policy: cfg.Policy(), Payments: payments}
	appealDeps := ucAppeal.Deps{Deps: deps, Policy: cfg.Policy(), Payments: payments, Evidence: evidence}

	sweeper := worker.NewSweeper(
		deps.Store,
		deps.Clock,
		cfg.Policy(),
		ucBooking.NewExpireBooking(bookingDeps),
		ucBooking.NewCompleteBooking(bookingDeps),
		ucBooking.NewSettleBooking(bookingDeps),
		ucAppeal.NewSweepAppeals(appealDeps),
		payments,
		worker.Config{Interval: cfg.Worker.SweepInterval, BatchSize: cfg.Worker.BatchSize},
		logger,
	)
	sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server running", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	// Order matters: the sweeper and pool still emit events, the
	// dispatcher drains them into the broker.
	sweeper.Stop()
	pool.Close()
	dispatcher.Close()
	if c, ok := broker.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("broker close", zap.Error(err))
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newLocking picks the distributed Redis locker when an address is set and
// the in-process one otherwise.
func newLocking(cfg config.RedisConfig, log *zap.Logger) (domain.Locker, domain.Deduper, func()) {
	if cfg.Addr == "" {
		log.Warn("redis not configured, using in-process locks (single node only)")
		return lock.NewLocal(), lock.NewMemoryDeduper(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	closeFn := func() { _ = client.Close() }

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal("failed to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	}

	return lock.NewRedis(client, lock.RedisOptions{}, log), lock.NewRedisDeduper(client), closeFn
}

func newGateway(cfg config.PaymentConfig, log *zap.Logger) (gateway.Gateway, error) {
	switch cfg.Provider {
	case "mercadopago":
		return gateway.NewMercadoPago(cfg.AccessToken, cfg.NotificationURL, cfg.PayoutURL, log)
	default:
		log.Warn("using fake payment gateway", zap.String("provider", cfg.Provider))
		return gateway.NewFake(), nil
	}
}

func newEvidenceStore(cfg config.StorageConfig) (storage.ObjectStore, error) {
	if cfg.Driver != "s3" {
		return storage.NewMemory(cfg.PublicURL), nil
	}
	return storage.NewS3(storage.S3Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		PublicURL: cfg.PublicURL,
	})
}

func newBroker(cfg config.BrokerConfig, log *zap.Logger) (audit.Sink, error) {
	switch cfg.Driver {
	case "rabbitmq":
		return notify.NewRabbitMQ(notify.RabbitMQConfig{URL: cfg.URL, Exchange: cfg.Exchange})
	case "kafka":
		return notify.NewKafka(notify.KafkaConfig{Brokers: cfg.Brokers, Topic: cfg.Topic}), nil
	default:
		return notify.NewLog(log), nil
	}
}

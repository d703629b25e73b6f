package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarpraslab/peminjaman-backend/internal/audit"
	"github.com/sarpraslab/peminjaman-backend/internal/cron"
	"github.com/sarpraslab/peminjaman-backend/internal/inventory"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/internal/notifications"
	"github.com/sarpraslab/peminjaman-backend/pkg/config"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/instance"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
	"github.com/sarpraslab/peminjaman-backend/pkg/migrate"
	"github.com/sarpraslab/peminjaman-backend/pkg/pubsub"
	"github.com/sarpraslab/peminjaman-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lendingMetrics := metrics.NewLendingMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, leasePrefix(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	notificationRepo := notifications.NewRepository(gdb)
	notificationService, err := notifications.NewService(notificationRepo)
	mustInit(logg, "notifications service", err)
	sink, err := notifications.NewSink(notificationRepo)
	mustInit(logg, "notification sink", err)
	auditService, err := audit.NewService(audit.NewRepository(gdb))
	mustInit(logg, "audit service", err)
	loanService, err := loans.NewService(loans.NewRepository(gdb), dbClient, inventory.NewLedger())
	mustInit(logg, "loans service", err)

	dispatcherParams := events.DispatcherParams{
		Notifier: sink,
		Auditor:  auditService,
		Logger:   logg,
		Metrics:  lendingMetrics,
	}
	if cfg.PubSub.Enabled {
		relay, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		mustInit(logg, "pubsub relay", err)
		defer func() { _ = relay.Close() }()
		dispatcherParams.Publisher = relay
	}
	dispatcher, err := events.NewDispatcher(dispatcherParams)
	mustInit(logg, "event dispatcher", err)

	overdueJob, err := cron.NewOverdueReminderJob(cron.OverdueReminderJobParams{
		Logger:     logg,
		Loans:      loanService,
		Dispatcher: dispatcher,
		BatchSize:  cfg.Cron.OverdueBatchSize,
	})
	mustInit(logg, "overdue reminder job", err)
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:    logg,
		Service:   notificationService,
		Retention: int(cfg.Cron.NotificationRetention.Hours() / 24),
	})
	mustInit(logg, "notification cleanup job", err)

	registry, err := cron.NewRegistry(overdueJob, cleanupJob)
	mustInit(logg, "cron registry", err)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"jobs":        registry.Names(),
	})
	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// leasePrefix scopes job leases per environment, e.g. pmj:lock:cron:prod.
func leasePrefix(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey("cron", env)
}

func mustInit(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}

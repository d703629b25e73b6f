package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sarpraslab/peminjaman-backend/api/controllers"
	"github.com/sarpraslab/peminjaman-backend/api/routes"
	"github.com/sarpraslab/peminjaman-backend/internal/audit"
	"github.com/sarpraslab/peminjaman-backend/internal/auth"
	"github.com/sarpraslab/peminjaman-backend/internal/categories"
	"github.com/sarpraslab/peminjaman-backend/internal/fines"
	"github.com/sarpraslab/peminjaman-backend/internal/inventory"
	"github.com/sarpraslab/peminjaman-backend/internal/loans"
	"github.com/sarpraslab/peminjaman-backend/internal/notifications"
	"github.com/sarpraslab/peminjaman-backend/internal/reports"
	"github.com/sarpraslab/peminjaman-backend/internal/returns"
	"github.com/sarpraslab/peminjaman-backend/internal/users"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth/session"
	"github.com/sarpraslab/peminjaman-backend/pkg/config"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/instance"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
	"github.com/sarpraslab/peminjaman-backend/pkg/migrate"
	"github.com/sarpraslab/peminjaman-backend/pkg/pubsub"
	"github.com/sarpraslab/peminjaman-backend/pkg/redis"
	"github.com/sarpraslab/peminjaman-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT.TokenTTL())
	mustInit(logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	lendingMetrics := metrics.NewLendingMetrics(registry)

	gdb := dbClient.DB()
	hasher := security.NewHasher(cfg.Password)
	ledger := inventory.NewLedger()
	userRepo := users.NewRepository(gdb)
	loanRepo := loans.NewRepository(gdb)
	notificationRepo := notifications.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Hasher:         hasher,
		JWTConfig:      cfg.JWT,
	})
	mustInit(logg, "auth service", err)
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, Hasher: hasher})
	mustInit(logg, "register service", err)
	inventoryService, err := inventory.NewService(inventory.NewRepository(gdb), dbClient, ledger)
	mustInit(logg, "inventory service", err)
	categoryService, err := categories.NewService(categories.NewRepository(gdb))
	mustInit(logg, "categories service", err)
	loanService, err := loans.NewService(loanRepo, dbClient, ledger)
	mustInit(logg, "loans service", err)
	returnService, err := returns.NewService(returns.NewRepository(gdb), loanRepo, dbClient, ledger)
	mustInit(logg, "returns service", err)
	fineService, err := fines.NewService(fines.NewRepository(gdb))
	mustInit(logg, "fines service", err)
	notificationService, err := notifications.NewService(notificationRepo)
	mustInit(logg, "notifications service", err)
	auditService, err := audit.NewService(audit.NewRepository(gdb))
	mustInit(logg, "audit service", err)
	reportService, err := reports.NewService(reports.NewRepository(gdb), fineService, auditService)
	mustInit(logg, "reports service", err)
	userService, err := users.NewService(userRepo, hasher)
	mustInit(logg, "users service", err)

	sink, err := notifications.NewSink(notificationRepo)
	mustInit(logg, "notification sink", err)

	ready := map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}
	dispatcherParams := events.DispatcherParams{
		Notifier: sink,
		Auditor:  auditService,
		Logger:   logg,
		Metrics:  lendingMetrics,
	}
	if cfg.PubSub.Enabled {
		relay, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		mustInit(logg, "pubsub relay", err)
		defer func() {
			if err := relay.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		dispatcherParams.Publisher = relay
		ready["pubsub"] = relay
	}
	dispatcher, err := events.NewDispatcher(dispatcherParams)
	mustInit(logg, "event dispatcher", err)

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Sessions:      sessionManager,
		Redis:         redisClient,
		Ready:         ready,
		Gatherer:      registry,
		HTTPMetrics:   httpMetrics,
		Hooks:         controllers.Hooks{Dispatcher: dispatcher, Metrics: lendingMetrics},
		Auth:          authService,
		Register:      registerService,
		Inventory:     inventoryService,
		Categories:    categoryService,
		Loans:         loanService,
		Returns:       returnService,
		Fines:         fineService,
		Notifications: notificationService,
		Reports:       reportService,
		Users:         userService,
		Audit:         auditService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func mustInit(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}

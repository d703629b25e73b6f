package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarpraslab/peminjaman-backend/api/controllers"
	"github.com/sarpraslab/peminjaman-backend/api/middleware"
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
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
	pkgredis "github.com/sarpraslab/peminjaman-backend/pkg/redis"
)

// redisStore covers idempotency and auth rate limiting.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps holds everything the router wires into handlers. Nil services make
// their routes answer 500.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    redisStore
	// Ready is pinged by /health/ready, keyed by dependency name.
	Ready map[string]controllers.Pinger

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Hooks       controllers.Hooks

	Auth          auth.Service
	Register      auth.RegisterService
	Inventory     inventory.Service
	Categories    categories.Service
	Loans         loans.Service
	Returns       returns.Service
	Fines         fines.Service
	Notifications notifications.Service
	Reports       reports.Service
	Users         users.Service
	Audit         audit.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg, hooks := d.Config, d.Logger, d.Hooks

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	staffOrAdmin := middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleStaff)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)
	borrowerOnly := middleware.RequireRole(logg, enums.RoleBorrower)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, hooks, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Register, hooks, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Redis, cfg.Idempotency.TTL, logg))

			r.Post("/auth/logout", controllers.AuthLogout(d.Auth, hooks, logg))
			r.Get("/auth/me", controllers.AuthMe(d.Auth, logg))

			r.Route("/equipment", func(r chi.Router) {
				r.Get("/", controllers.EquipmentInventory(d.Inventory, logg))
				r.Get("/{equipmentID}", controllers.EquipmentGet(d.Inventory, logg))
				r.With(adminOnly).Post("/", controllers.EquipmentCreate(d.Inventory, hooks, logg))
				r.With(adminOnly).Put("/{equipmentID}", controllers.EquipmentUpdate(d.Inventory, hooks, logg))
				r.With(adminOnly).Delete("/{equipmentID}", controllers.EquipmentDelete(d.Inventory, hooks, logg))
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoryList(d.Categories, logg))
				r.With(adminOnly).Post("/", controllers.CategoryCreate(d.Categories, hooks, logg))
				r.With(adminOnly).Put("/{categoryID}", controllers.CategoryUpdate(d.Categories, hooks, logg))
				r.With(adminOnly).Delete("/{categoryID}", controllers.CategoryDelete(d.Categories, hooks, logg))
			})

			r.Route("/loans", func(r chi.Router) {
				r.Get("/", controllers.LoanList(d.Loans, logg))
				r.With(borrowerOnly).Post("/", controllers.LoanCreate(d.Loans, hooks, logg))
				r.Get("/{loanID}", controllers.LoanGet(d.Loans, logg))
				r.With(staffOrAdmin).Post("/{loanID}/decision", controllers.LoanDecision(d.Loans, hooks, logg))
				r.With(adminOnly).Put("/{loanID}", controllers.LoanOverride(d.Loans, hooks, logg))
				r.With(adminOnly).Delete("/{loanID}", controllers.LoanDelete(d.Loans, hooks, logg))
			})

			r.Route("/returns", func(r chi.Router) {
				r.Get("/", controllers.ReturnList(d.Returns, logg))
				r.With(borrowerOnly).Post("/", controllers.ReturnSubmit(d.Returns, hooks, logg))
				r.Get("/{returnID}", controllers.ReturnGet(d.Returns, logg))
				r.With(staffOrAdmin).Put("/{returnID}/fine", controllers.ReturnSetFine(d.Returns, hooks, logg))
				r.With(staffOrAdmin).Post("/{returnID}/confirm", controllers.ReturnConfirm(d.Returns, hooks, logg))
				r.With(staffOrAdmin).Post("/{returnID}/paid", controllers.ReturnMarkPaid(d.Returns, hooks, logg))
				r.With(adminOnly).Delete("/{returnID}", controllers.ReturnDelete(d.Returns, hooks, logg))
			})

			r.With(staffOrAdmin).Get("/fines/outstanding", controllers.FinesOutstanding(d.Fines, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Get("/unread-count", controllers.UnreadNotificationCount(d.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(d.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			})

			r.Get("/dashboard", controllers.Dashboard(d.Reports, logg))
			r.With(staffOrAdmin).Get("/reports/loans", controllers.LoanReport(d.Reports, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", controllers.UserList(d.Users, logg))
					r.Post("/", controllers.UserCreate(d.Users, hooks, logg))
					r.Get("/{userID}", controllers.UserGet(d.Users, logg))
					r.Put("/{userID}", controllers.UserUpdate(d.Users, hooks, logg))
					r.Delete("/{userID}", controllers.UserDelete(d.Users, hooks, logg))
				})
				r.Route("/activity-logs", func(r chi.Router) {
					r.Get("/", controllers.ActivityLogList(d.Audit, logg))
					r.Delete("/{logID}", controllers.ActivityLogDelete(d.Audit, logg))
				})
			})
		})
	})

	return r
}

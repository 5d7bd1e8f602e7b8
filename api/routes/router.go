package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockroom-backend/api/controllers"
	"github.com/angelmondragon/stockroom-backend/api/middleware"
	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/internal/exports"
	"github.com/angelmondragon/stockroom-backend/internal/ledger"
	"github.com/angelmondragon/stockroom-backend/internal/notifications"
	"github.com/angelmondragon/stockroom-backend/internal/realtime"
	"github.com/angelmondragon/stockroom-backend/pkg/config"
	"github.com/angelmondragon/stockroom-backend/pkg/db"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/redis"
)

// Dependencies carries the services mounted by NewRouter. Gatherer defaults to
// the global prometheus registry.
type Dependencies struct {
	DB            db.Pinger
	Redis         redis.Pinger
	Ledger        ledger.Service
	Audit         *audit.Service
	Exports       *exports.Service
	Notifications notifications.Service
	Hub           *realtime.Hub
	Gatherer      prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	auth := middleware.Auth(cfg.JWT, logg)
	managerOnly := middleware.RequireManager(logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Route("/items", func(r chi.Router) {
			r.Post("/add", controllers.AddItem(deps.Ledger, logg))
			r.Post("/issue", controllers.IssueItem(deps.Ledger, logg))
			r.Post("/return", controllers.ReturnItem(deps.Ledger, logg))
			r.With(managerOnly).Post("/transfer", controllers.TransferItem(deps.Ledger, logg))
			r.Get("/status", controllers.ItemStatus(deps.Ledger, logg))
			r.Patch("/{name}", controllers.UpdateItem(deps.Ledger, logg))
			r.Delete("/{name}", controllers.DeleteItem(deps.Ledger, logg))
			r.Get("/{name}/history", controllers.ItemHistory(deps.Ledger, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(managerOnly)
			r.Get("/audit/logs", controllers.RecentAuditLogs(deps.Audit, logg))
			r.Get("/analytics/usage", controllers.UsageAnalytics(deps.Audit, logg))
			r.Post("/exports/audit", controllers.StartAuditExport(deps.Exports, logg))
			r.Get("/exports/{taskId}", controllers.GetAuditExport(deps.Exports, logg))
		})

		r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
	})

	r.With(auth).Get("/ws/inventory", controllers.LiveInventory(
		deps.Hub,
		controllers.NewUpgrader(cfg.App.CORSOrigins),
		cfg.Realtime.WriteTimeout,
		logg,
	))

	return r
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/auth"
	"github.com/orderdesk/orderdesk/internal/catalog"
	"github.com/orderdesk/orderdesk/internal/notify"
	"github.com/orderdesk/orderdesk/internal/observability"
	"github.com/orderdesk/orderdesk/internal/orders"
	"github.com/orderdesk/orderdesk/internal/reports"
	"github.com/orderdesk/orderdesk/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	ActorMiddleware actors.Middleware

	AuthHandler    *auth.Handler
	OrderHandler   *orders.Handler
	CatalogHandler *catalog.Handler
	ReportHandler  *reports.Handler
	NotifyHandler  *notify.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with orderdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.ActorMiddleware.Require)

		r.Route("/orders", func(r chi.Router) {
			params.OrderHandler.MountRoutes(r)
		})
		r.Route("/catalog", func(r chi.Router) {
			params.CatalogHandler.MountRoutes(r)
		})
		r.Route("/reports", func(r chi.Router) {
			params.ReportHandler.MountRoutes(r)
		})
		r.Route("/notifications", func(r chi.Router) {
			params.NotifyHandler.MountRoutes(r)
		})
	})

	return r
}

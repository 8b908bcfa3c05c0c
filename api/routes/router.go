package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orgolab/labstock-backend/api/controllers"
	"github.com/orgolab/labstock-backend/api/middleware"
	"github.com/orgolab/labstock-backend/internal/notifications"
	"github.com/orgolab/labstock-backend/internal/orders"
	"github.com/orgolab/labstock-backend/internal/quotes"
	"github.com/orgolab/labstock-backend/internal/uploads"
	"github.com/orgolab/labstock-backend/pkg/config"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers. Pingers feed the
// readiness endpoint; nil entries are reported as skipped.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Quotes        quotes.Service
	Orders        orders.Service
	Notifications *notifications.Service
	Uploads       *uploads.Service
	Pingers       map[string]controllers.Pinger
	Metrics       prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", controllers.CreateQuotes(deps.Quotes, logg))
			r.Get("/", controllers.ListOpenQuotes(deps.Quotes, logg))
			r.Get("/{quoteId}", controllers.GetQuote(deps.Quotes, logg))
			r.Patch("/{quoteId}", controllers.UpdateQuote(deps.Quotes, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Post("/upload-status", controllers.ResolveUploadStatus(deps.Uploads, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Put("/{orderId}", controllers.UpdateOrder(deps.Orders, logg))
			r.Delete("/{orderId}", controllers.DeleteOrder(deps.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/orders", controllers.ListOrderNotifications(deps.Notifications, logg))
			r.Get("/expiry", controllers.ListExpiryNotifications(deps.Notifications, logg))
			r.Delete("/expiry/{stockItemId}", controllers.DismissExpiryNotification(deps.Notifications, logg))
		})
	})

	return r
}

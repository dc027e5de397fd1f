package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bagelworks/orderbot-backend/api/controllers"
	"github.com/bagelworks/orderbot-backend/api/middleware"
	"github.com/bagelworks/orderbot-backend/internal/chat"
	"github.com/bagelworks/orderbot-backend/internal/sessions"
	"github.com/bagelworks/orderbot-backend/pkg/config"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	chatService chat.Service,
	ordersRepo sessions.Repository,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": dbPinger,
			"redis":    redisPinger,
		}))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Post("/turns", controllers.ChatTurn(chatService, logg))
		r.Get("/sessions/{sessionID}", controllers.ChatSession(chatService, logg))
		r.Get("/sessions/{sessionID}/suggestions", controllers.ChatSuggestions(chatService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", controllers.ListOrders(ordersRepo, logg))
		r.Get("/{orderNumber}", controllers.GetOrder(ordersRepo, logg))
	})

	return r
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig configura el router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	MetricsRegistry    prometheus.Registerer
}

// NewRouter arma el router chi con middlewares y todas las rutas.
func NewRouter(api *API, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	metricsHandler := RegisterMetrics(cfg.MetricsRegistry)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/register", api.handleRegister)
		r.Post("/unregister", api.handleUnregister)
		r.Put("/device", api.handleUpdateDevice)
		r.Get("/devices/{deviceID}/features", api.handleGetFeatures)
		r.Get("/devices/{deviceID}/payload", api.handleGetPayload)
		r.Post("/ingest", api.handleIngest)
	})
	r.Get("/healthz", api.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	var h http.Handler = r
	h = WithLogging(h)
	h = WithRequestID(h)
	if len(cfg.CORSAllowedOrigins) > 0 {
		h = WithCORS(h, cfg.CORSAllowedOrigins)
	}
	return h
}

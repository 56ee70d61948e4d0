package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/cheya01/facial-recog-poc-server/pkg/platform/httputil"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/middleware/requestid"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/middleware/requestlog"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a bounded context's routes under /api.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthChecker is a dependency pinged by /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Health(ctx context.Context) error { return f(ctx) }

// Config wires the router.
type Config struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	HealthChecks   map[string]HealthChecker
	APIs           []RouteRegistrar
}

const healthTimeout = 2 * time.Second

// NewRouter wires all public endpoints.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(requestlog.Middleware(logger))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		for _, api := range cfg.APIs {
			api.Register(r)
		}
	})

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestid.Header},
		ExposedHeaders: []string{requestid.Header},
	})
	return c.Handler(r)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

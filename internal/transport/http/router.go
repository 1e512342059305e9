package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geopulse/internal/platform/metrics"
	"geopulse/pkg/platform/httputil"
	"geopulse/pkg/platform/middleware/request"
	"geopulse/pkg/platform/middleware/requesttime"
)

// requestTimeout bounds every request, LLM calls included.
const requestTimeout = 30 * time.Second

// Registrar is a per-domain handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router needs.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Handlers []Registrar
}

// NewRouter wires the shared middleware, the operational endpoints and every
// domain handler. Handlers stay free of transport-wide concerns.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", healthz(d.Checks))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range d.Handlers {
		h.Register(r)
	}
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": overall,
			"checks": results,
		})
	}
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-level Prometheus metrics: HTTP traffic and batch
// jobs. Domain metrics live with their packages.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Batch job runs by job name and outcome ("ok" or "error")
	JobRuns *prometheus.CounterVec

	// Rows handled per job run by job name and result
	JobRows *prometheus.CounterVec

	JobDuration *prometheus.HistogramVec
}

// New creates and registers all service metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geopulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_job_runs_total",
			Help: "Total batch job runs by job and outcome",
		}, []string{"job", "outcome"}),

		JobRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_job_rows_total",
			Help: "Rows handled by batch jobs by job and result",
		}, []string{"job", "result"}),

		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geopulse_job_duration_seconds",
			Help:    "Batch job run duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
	}
}

// ObserveJob records one job run.
func (m *Metrics) ObserveJob(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// AddJobRows records rows handled by a job run.
func (m *Metrics) AddJobRows(job, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.JobRows.WithLabelValues(job, result).Add(float64(n))
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPLatency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

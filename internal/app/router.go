// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/routerfleet/regional-broker/internal/adapter/httpserver"
	"github.com/routerfleet/regional-broker/internal/adapter/observability"
	"github.com/routerfleet/regional-broker/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	if s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Submission is rate-limited per source IP, since a misbehaving
	// submitter should not be able to overwhelm the broker's single
	// exclusion domain with job churn.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Post("/enqueue/regional", srv.EnqueueHandler())
	})

	// dequeue/complete are a worker's tight short-poll loop, not rate
	// limited; throttling them would just stall dispatch and redelivery.
	r.Post("/dequeue/regional", srv.DequeueHandler())
	r.Post("/complete/{jobId}/{taskIndex}", srv.CompleteHandler())

	// Cancellation is both admin-gated (when admin credentials are
	// configured) and rate-limited, for the same churn reason as enqueue.
	r.Group(func(wr chi.Router) {
		wr.Use(srv.AdminAPIGuard())
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Delete("/jobs/{jobId}", srv.DeleteJobHandler())
	})

	// Plain introspection endpoints are admin-gated when admin credentials
	// are configured; otherwise they're open, matching local dev and CI
	// where no admin credentials are set.
	r.Group(func(wr chi.Router) {
		wr.Use(srv.AdminAPIGuard())
		wr.Get("/jobs", srv.ListJobsHandler())
		wr.Get("/workers", srv.ListWorkersHandler())
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/health", srv.HealthzHandler())

	if cfg.AdminEnabled() {
		r.Post("/admin/token", srv.AdminTokenHandler())
		r.Group(func(wr chi.Router) {
			wr.Use(srv.AdminAPIGuard())
			wr.Get("/admin/prometheus", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
		})
	}

	return httpserver.SecurityHeaders(r)
}

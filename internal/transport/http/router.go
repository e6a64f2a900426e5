// Package httptransport assembles the public HTTP surface: session
// lifecycle and ingest, the integrity ledger, health, and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	integrityhandler "vigil/internal/integrity/handler"
	"vigil/internal/platform/middleware"
	sessionhandler "vigil/internal/session/handler"
	"vigil/pkg/httputil"
)

// HealthChecker reports one dependency's liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts. Health checkers may be nil
// when the corresponding backend is not configured.
type Deps struct {
	Sessions  *sessionhandler.Handler
	Integrity *integrityhandler.Handler
	Logger    *slog.Logger
	Checks    map[string]HealthChecker
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/healthz", handleHealth(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Sessions.Register(r)
	deps.Integrity.Register(r)

	return otelhttp.NewHandler(r, "vigil.http")
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check.Health(r.Context()); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerState reports the Execution Manager circuit breaker state.
type BreakerState interface {
	State() gobreaker.State
}

// ReadinessChecker verifies that every served document can be loaded.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// NewRouter creates the ops HTTP router. The control protocol itself is
// served by the transport listener, not by this router.
func NewRouter(model port.Model, breaker BreakerState, docs ReadinessChecker, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(model, breaker))
	r.Get("/readyz", readyzHandler(docs, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", statsHandler(metrics))
		r.Get("/routes", routesHandler())
	})

	return r
}

func healthzHandler(model port.Model, breaker BreakerState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "swim-control", Status: "healthy", LastChecked: now},
		}

		if model != nil {
			status := "healthy"
			if model.ActiveServers() == 0 {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:   "model",
				Status: status,
				Detail: "servers=" + strconv.Itoa(model.Servers()) +
					" active=" + strconv.Itoa(model.ActiveServers()) +
					" max=" + strconv.Itoa(model.MaxServers()),
				LastChecked: now,
			})
		}

		if breaker != nil {
			state := breaker.State()
			status := "healthy"
			switch state {
			case gobreaker.StateOpen:
				status = "unhealthy"
			case gobreaker.StateHalfOpen:
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "execution-manager", Status: status, Detail: state.String(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(docs ReadinessChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if docs != nil {
			if err := docs.Check(r.Context()); err != nil {
				logger.Warn("not ready", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetControlSnapshot())
	}
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func routesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes := Routes()
		out := make([]routeInfo, 0, len(routes))
		for _, rt := range routes {
			out = append(out, routeInfo{Method: rt.Method, Path: rt.Path})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

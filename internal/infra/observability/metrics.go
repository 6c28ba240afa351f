package observability

import (
	"strconv"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the control plane.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	requestsTotal     *prometheus.CounterVec
	executionCalls    *prometheus.CounterVec
	executionFailures *prometheus.CounterVec
	adaptationResults *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// control-plane metrics in it. A private registry keeps repeated calls
// (one per test) from colliding.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swim_control_request_duration_seconds",
				Help:    "Duration of control requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_control_requests_total",
				Help: "Total control requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		executionCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_execution_calls_total",
				Help: "Execution Manager calls issued by the adaptation applier.",
			},
			[]string{"operation"},
		),
		executionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_execution_failures_total",
				Help: "Execution Manager calls that returned an error.",
			},
			[]string{"operation"},
		),
		adaptationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_adaptation_results_total",
				Help: "Per-field adaptation outcomes.",
			},
			[]string{"field", "status"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swim_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RegisterModelGauges exposes the live model state as gauges.
func (m *Metrics) RegisterModelGauges(model port.Model) {
	factory := promauto.With(m.Registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "swim_model_servers",
		Help: "Servers in the pool, booting included.",
	}, func() float64 { return float64(model.Servers()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "swim_model_active_servers",
		Help: "Servers serving requests.",
	}, func() float64 { return float64(model.ActiveServers()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "swim_model_max_servers",
		Help: "Upper bound on the server pool.",
	}, func() float64 { return float64(model.MaxServers()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "swim_model_dimmer",
		Help: "Current dimmer factor (1 - brownout).",
	}, func() float64 { return 1 - model.BrownoutFactor() })
}

// RecordRequest records one control request outcome.
func (m *Metrics) RecordRequest(route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// IncrExecutionCall increments the Execution Manager call counter.
func (m *Metrics) IncrExecutionCall(operation string) {
	m.executionCalls.WithLabelValues(operation).Inc()
}

// IncrExecutionFailure increments the Execution Manager failure counter.
func (m *Metrics) IncrExecutionFailure(operation string) {
	m.executionFailures.WithLabelValues(operation).Inc()
}

// IncrAdaptationResult counts one per-field adaptation status.
func (m *Metrics) IncrAdaptationResult(field, status string) {
	m.adaptationResults.WithLabelValues(field, status).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetControlSnapshot summarizes the counters for GET /v1/stats.
func (m *Metrics) GetControlSnapshot() *domain.ControlStats {
	var total, errs float64
	collectCounters(m.requestsTotal, func(labels map[string]string, v float64) {
		total += v
		if code, err := strconv.Atoi(labels["status"]); err == nil && code >= 400 {
			errs += v
		}
	})

	hits := getCounterValue(m.cacheHits, "documents")
	misses := getCounterValue(m.cacheMisses, "documents")

	stats := &domain.ControlStats{
		TotalRequests:   int64(total),
		ErrorRequests:   int64(errs),
		ServersAdded:    int64(getCounterValue(m.executionCalls, "add_server")),
		ServersRemoved:  int64(getCounterValue(m.executionCalls, "remove_server")),
		BrownoutChanges: int64(getCounterValue(m.executionCalls, "set_brownout")),
		Period:          "all_time",
	}
	if total > 0 {
		stats.ErrorRate = errs / total
	}
	if hits+misses > 0 {
		stats.CacheHitRate = hits / (hits + misses)
	}
	return stats
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectCounters walks every child of a CounterVec.
func collectCounters(cv *prometheus.CounterVec, fn func(labels map[string]string, v float64)) {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		labels := make(map[string]string, len(m.Label))
		for _, lp := range m.Label {
			labels[lp.GetName()] = lp.GetValue()
		}
		fn(labels, m.Counter.GetValue())
	}
}

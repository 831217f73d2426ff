package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Order metrics
	OrdersPlacedTotal    *prometheus.CounterVec
	OrdersFilledTotal    *prometheus.CounterVec
	OrdersCancelledTotal *prometheus.CounterVec
	OrdersRejectedTotal  *prometheus.CounterVec

	// Settlement metrics
	SettlementErrorsTotal prometheus.Counter

	// Price metrics
	PriceFetchesTotal  *prometheus.CounterVec
	PriceFailuresTotal *prometheus.CounterVec
	PriceCacheSize     prometheus.Gauge

	// Sweep metrics
	SweepDuration    prometheus.Histogram
	SweepOrdersTotal *prometheus.CounterVec

	// Oracle metrics
	OracleCyclesTotal    *prometheus.CounterVec
	OracleDecisionsTotal *prometheus.CounterVec
	OracleCycleDuration  prometheus.Histogram

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Order metrics
		OrdersPlacedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "orders",
				Name:      "placed_total",
				Help:      "Total number of orders accepted",
			},
			[]string{"side", "type"},
		),
		OrdersFilledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "orders",
				Name:      "filled_total",
				Help:      "Total number of orders filled",
			},
			[]string{"side", "type"},
		),
		OrdersCancelledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "orders",
				Name:      "cancelled_total",
				Help:      "Total number of orders cancelled",
			},
			[]string{"side"},
		),
		OrdersRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "orders",
				Name:      "rejected_total",
				Help:      "Total number of orders rejected at validation",
			},
			[]string{"reason"},
		),

		// Settlement metrics
		SettlementErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "settlement",
				Name:      "errors_total",
				Help:      "Total number of failed settlement commits",
			},
		),

		// Price metrics
		PriceFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "prices",
				Name:      "fetches_total",
				Help:      "Total number of price lookups by outcome",
			},
			[]string{"outcome"},
		),
		PriceFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "prices",
				Name:      "failures_total",
				Help:      "Total number of price lookups that returned no quote",
			},
			[]string{"symbol"},
		),
		PriceCacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paper_trader",
				Subsystem: "prices",
				Name:      "cache_size",
				Help:      "Number of symbols currently cached",
			},
		),

		// Sweep metrics
		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "sweep",
				Name:      "duration_seconds",
				Help:      "Duration of pending-order sweeps in seconds",
				Buckets:   defaultBuckets,
			},
		),
		SweepOrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "sweep",
				Name:      "orders_total",
				Help:      "Total number of orders visited by sweeps",
			},
			[]string{"result"},
		),

		// Oracle metrics
		OracleCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "oracle",
				Name:      "cycles_total",
				Help:      "Total number of decision cycles by outcome",
			},
			[]string{"status"},
		),
		OracleDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "oracle",
				Name:      "decisions_total",
				Help:      "Total number of oracle decisions",
			},
			[]string{"operation", "executed"},
		),
		OracleCycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "oracle",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of decision cycles in seconds",
				Buckets:   defaultBuckets,
			},
		),

		// External API metrics
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paper_trader",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "paper_trader",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paper_trader",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordOrderPlaced records an accepted order
func (m *Metrics) RecordOrderPlaced(side, orderType string) {
	m.OrdersPlacedTotal.WithLabelValues(side, orderType).Inc()
}

// RecordOrderFilled records a filled order
func (m *Metrics) RecordOrderFilled(side, orderType string) {
	m.OrdersFilledTotal.WithLabelValues(side, orderType).Inc()
}

// RecordOrderCancelled records a cancelled order
func (m *Metrics) RecordOrderCancelled(side string) {
	m.OrdersCancelledTotal.WithLabelValues(side).Inc()
}

// RecordOrderRejected records a validation rejection
func (m *Metrics) RecordOrderRejected(reason string) {
	m.OrdersRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordSettlementError records a failed settlement commit
func (m *Metrics) RecordSettlementError() {
	m.SettlementErrorsTotal.Inc()
}

// RecordPriceFetch records a price lookup outcome (hit, miss, stale)
func (m *Metrics) RecordPriceFetch(outcome string) {
	m.PriceFetchesTotal.WithLabelValues(outcome).Inc()
}

// RecordPriceFailure records a lookup that produced no quote
func (m *Metrics) RecordPriceFailure(symbol string) {
	m.PriceFailuresTotal.WithLabelValues(symbol).Inc()
}

// SetPriceCacheSize sets the current cache population
func (m *Metrics) SetPriceCacheSize(n int) {
	m.PriceCacheSize.Set(float64(n))
}

// RecordOracleCycle records the outcome of one decision cycle
func (m *Metrics) RecordOracleCycle(status string) {
	m.OracleCyclesTotal.WithLabelValues(status).Inc()
}

// RecordOracleDecision records an oracle decision
func (m *Metrics) RecordOracleDecision(operation string, executed bool) {
	m.OracleDecisionsTotal.WithLabelValues(operation, strconv.FormatBool(executed)).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveSweep records a completed sweep
func (t *Timer) ObserveSweep(checked, filled int) {
	t.metrics.SweepDuration.Observe(time.Since(t.start).Seconds())
	t.metrics.SweepOrdersTotal.WithLabelValues("checked").Add(float64(checked))
	t.metrics.SweepOrdersTotal.WithLabelValues("filled").Add(float64(filled))
}

// ObserveOracleCycle records a completed decision cycle
func (t *Timer) ObserveOracleCycle(status string) {
	t.metrics.OracleCycleDuration.Observe(time.Since(t.start).Seconds())
	t.metrics.RecordOracleCycle(status)
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

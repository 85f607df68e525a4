// Package metrics provides Prometheus metrics for the resource service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the resource service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Union graph metrics
	OrdersCreatedTotal      prometheus.Counter
	OrdersCompletedTotal    prometheus.Counter
	OrdersFailedTotal       prometheus.Counter
	OrdersResetTotal        *prometheus.CounterVec
	OrdersDeletedTotal      prometheus.Counter
	OrdersByStatus          *prometheus.GaugeVec
	OrdersInFlight          prometheus.Gauge
	OrderProcessingDuration prometheus.Histogram
	ResourcesProcessedTotal prometheus.Counter
	DataServicesExpanded    prometheus.Counter

	// Webhook metrics
	WebhooksTotal   *prometheus.CounterVec
	WebhookDuration prometheus.Histogram

	// Ingestion metrics
	MessagesTotal      *prometheus.CounterVec
	StoreErrorsTotal   *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
	ListenersPaused    prometheus.Gauge
}

// New creates all metrics and registers them with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	m := &Metrics{}

	m.OrdersCreatedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_orders_created_total",
		Help: "Total number of union graph orders created",
	})
	m.OrdersCompletedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_orders_completed_total",
		Help: "Total number of union graph builds that completed",
	})
	m.OrdersFailedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_orders_failed_total",
		Help: "Total number of union graph builds that failed",
	})
	m.OrdersResetTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "union_graph_orders_reset_total",
		Help: "Total number of union graph orders moved back to PENDING",
	}, []string{"reason"})
	m.OrdersDeletedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_orders_deleted_total",
		Help: "Total number of union graph orders deleted",
	})
	m.OrdersByStatus = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "union_graph_orders",
		Help: "Current number of union graph orders by status",
	}, []string{"status"})
	m.OrdersInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "union_graph_builds_in_flight",
		Help: "Number of union graph builds running on this instance",
	})
	m.OrderProcessingDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "union_graph_processing_duration_seconds",
		Help:    "Duration of union graph builds in seconds",
		Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
	m.ResourcesProcessedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_resources_processed_total",
		Help: "Total number of resources merged into union graphs",
	})
	m.DataServicesExpanded = f.NewCounter(prometheus.CounterOpts{
		Name: "union_graph_data_services_expanded_total",
		Help: "Total number of data services merged through distribution access services",
	})

	m.WebhooksTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "union_graph_webhooks_total",
		Help: "Total number of webhook deliveries by outcome",
	}, []string{"outcome"})
	m.WebhookDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "union_graph_webhook_duration_seconds",
		Help:    "Duration of webhook deliveries in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.MessagesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_total",
		Help: "Total number of consumed messages by source and outcome",
	}, []string{"source", "outcome"})
	m.StoreErrorsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_store_errors_total",
		Help: "Total number of failed resource store operations",
	}, []string{"operation"})
	m.StoreDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_store_duration_seconds",
		Help:    "Duration of resource store operations in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation"})
	m.BreakerState = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ingest_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"breaker"})
	m.BreakerTransitions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_circuit_breaker_transitions_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"breaker", "to"})
	m.ListenersPaused = f.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_listeners_paused",
		Help: "1 while ingestion listeners are paused",
	})

	return m
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.Inc()
}

func (m *Metrics) OrderDeleted() {
	if m == nil {
		return
	}
	m.OrdersDeletedTotal.Inc()
}

// OrderReset counts an order moved back to PENDING. reason is manual, stale, expired or released.
func (m *Metrics) OrderReset(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrdersResetTotal.WithLabelValues(reason).Add(float64(n))
}

// Build outcomes.
const (
	BuildCompleted = "completed"
	BuildFailed    = "failed"
	BuildReleased  = "released"
)

// BuildStarted marks a build in flight and returns the function that records its end.
func (m *Metrics) BuildStarted() func(outcome string, resources, dataServices int) {
	if m == nil {
		return func(string, int, int) {}
	}
	start := time.Now()
	m.OrdersInFlight.Inc()
	return func(outcome string, resources, dataServices int) {
		m.OrdersInFlight.Dec()
		m.OrderProcessingDuration.Observe(time.Since(start).Seconds())
		switch outcome {
		case BuildCompleted:
			m.OrdersCompletedTotal.Inc()
		case BuildFailed:
			m.OrdersFailedTotal.Inc()
		}
		m.ResourcesProcessedTotal.Add(float64(resources))
		m.DataServicesExpanded.Add(float64(dataServices))
	}
}

// SetOrderCounts replaces the by-status gauge.
func (m *Metrics) SetOrderCounts(counts map[string]int64) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.OrdersByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) RecordWebhook(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.WebhookDuration.Observe(duration.Seconds())
	}
}

// RecordMessage counts one consumed message. outcome is processed, skipped, failed or
// short_circuited.
func (m *Metrics) RecordMessage(source, outcome string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordStore records one resource store operation.
func (m *Metrics) RecordStore(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) SetBreakerState(breaker, to string, value float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(breaker).Set(value)
	m.BreakerTransitions.WithLabelValues(breaker, to).Inc()
}

func (m *Metrics) SetListenersPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.ListenersPaused.Set(1)
	} else {
		m.ListenersPaused.Set(0)
	}
}

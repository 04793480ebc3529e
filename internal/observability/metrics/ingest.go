package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics tracks inbound host event processing outcomes.
type IngestMetrics struct {
	eventsProcessed *prometheus.CounterVec
	eventsSkipped   *prometheus.CounterVec
	cascadeEvents   *prometheus.CounterVec
	handleDuration  prometheus.Histogram
	relayPublished  prometheus.Counter
	relayBacklog    prometheus.Gauge
}

// NewIngestMetrics registers host ingest instruments on the registry.
func NewIngestMetrics(registerer prometheus.Registerer, cfg Config) *IngestMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "swatch"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	eventsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "swatch_host_events_processed_total",
			Help:        "Inbound host lifecycle events processed.",
			ConstLabels: constLabels,
		},
		[]string{"event_type", "result"}, // created | updated | deleted, success | failed
	)

	eventsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "swatch_host_events_skipped_total",
			Help:        "Inbound host events dropped by the skip predicate.",
			ConstLabels: constLabels,
		},
		[]string{"reason"}, // culled | edge | marketplace
	)

	cascadeEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "swatch_host_cascade_events_total",
			Help:        "Outbound events emitted for hosts other than the inbound one.",
			ConstLabels: constLabels,
		},
		[]string{"direction"}, // guest | hypervisor
	)

	handleDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "swatch_host_event_handle_seconds",
			Help:        "Time spent handling one inbound host event.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: constLabels,
		},
	)

	relayPublished := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "swatch_host_events_relayed_total",
			Help:        "Outbox rows marked published by the relay.",
			ConstLabels: constLabels,
		},
	)

	relayBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "swatch_host_events_relay_backlog",
			Help:        "Outbox rows waiting for the relay.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		eventsProcessed,
		eventsSkipped,
		cascadeEvents,
		handleDuration,
		relayPublished,
		relayBacklog,
	)

	return &IngestMetrics{
		eventsProcessed: eventsProcessed,
		eventsSkipped:   eventsSkipped,
		cascadeEvents:   cascadeEvents,
		handleDuration:  handleDuration,
		relayPublished:  relayPublished,
		relayBacklog:    relayBacklog,
	}
}

func (m *IngestMetrics) IncProcessed(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(eventType, result).Inc()
}

func (m *IngestMetrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.eventsSkipped.WithLabelValues(reason).Inc()
}

func (m *IngestMetrics) IncCascade(direction string) {
	if m == nil {
		return
	}
	m.cascadeEvents.WithLabelValues(direction).Inc()
}

func (m *IngestMetrics) ObserveHandleDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.handleDuration.Observe(d.Seconds())
}

func (m *IngestMetrics) AddRelayed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.relayPublished.Add(float64(count))
}

func (m *IngestMetrics) SetRelayBacklog(value int64) {
	if m == nil {
		return
	}
	m.relayBacklog.Set(float64(value))
}

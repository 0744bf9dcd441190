package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audit_sentry",
			Name:      "events_total",
			Help:      "Total number of audit events handled, partitioned by run outcome.",
		},
		[]string{"outcome"},
	)

	pipelineSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "audit_sentry",
			Name:      "pipeline_seconds",
			Help:      "Per-event pipeline latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	classifierFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audit_sentry",
			Name:      "classifier_failures_total",
			Help:      "Semantic classification failures, partitioned by reason.",
		},
		[]string{"reason"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audit_sentry",
			Name:      "notifications_total",
			Help:      "Alert delivery attempts, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches the audit-sentry collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsTotal,
		pipelineSeconds,
		classifierFailuresTotal,
		notificationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvent records one pipeline run's duration and outcome label.
func ObserveEvent(duration time.Duration, outcome string) {
	eventsTotal.WithLabelValues(outcome).Inc()
	pipelineSeconds.Observe(duration.Seconds())
}

// ClassifierFailure counts a failed semantic classification by reason.
func ClassifierFailure(reason string) {
	classifierFailuresTotal.WithLabelValues(reason).Inc()
}

// NotificationResult counts one alert delivery attempt ("delivered" or "failed").
func NotificationResult(result string) {
	notificationsTotal.WithLabelValues(result).Inc()
}

package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "labgen",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of text-completion requests",
	}, []string{"provider", "model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labgen",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed text-completion requests",
	}, []string{"provider", "model"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labgen",
		Subsystem: "ai",
		Name:      "fallback_total",
		Help:      "Number of gateway operations answered with fallback content",
	}, []string{"operation", "stage"})
)

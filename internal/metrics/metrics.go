package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipprompt_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	EnhanceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipprompt_enhance_duration_seconds",
		Help:    "Time spent waiting on the upstream provider.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider"})

	// EnhanceErrors counts failed enhancements by error category.
	EnhanceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipprompt_enhance_errors_total",
		Help: "Failed enhancement requests by category.",
	}, []string{"category"})

	IdeaChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipprompt_idea_chars",
		Help:    "Number of characters in submitted ideas.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	// ProviderAvailable reports whether a provider currently has a credential.
	ProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clipprompt_provider_available",
		Help: "Whether a provider credential is configured (1) or not (0).",
	}, []string{"provider"})
)

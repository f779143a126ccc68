package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	contextsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_contexts_created_total",
		Help: "Render contexts created",
	})

	contextsDisposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_contexts_disposed_total",
		Help: "Render contexts torn down",
	})

	invalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_invalidations_total",
		Help: "Context invalidations requested by state changes",
	})

	renderPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_render_passes_total",
		Help: "Render passes by result",
	}, []string{"result"})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "driftui_render_duration_seconds",
		Help:    "Duration of successful render passes",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	effectsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_effects_run_total",
		Help: "Effects run after committed passes",
	})
)

package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	referencesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_export_references_created_total",
		Help: "References allocated across all registries",
	})

	referencesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_export_references_removed_total",
		Help: "References retired by snapshots",
	})

	referencesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftui_export_references_live",
		Help: "References currently held across all registries",
	})

	revisionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_export_revisions_total",
		Help: "Revisions issued to message builders",
	})
)

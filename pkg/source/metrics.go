package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftui_source_subscriptions",
		Help: "Live table subscriptions",
	})

	updatesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_source_updates_total",
		Help: "Change notifications published by tables",
	}, []string{"table"})

	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_source_file_reloads_total",
		Help: "File table reloads by result",
	}, []string{"result"})
)

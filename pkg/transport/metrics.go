package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftui_transport_sessions_active",
		Help: "Open websocket sessions",
	})

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_transport_frames_sent_total",
		Help: "Envelopes written to websocket connections",
	})

	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_transport_frames_received_total",
		Help: "Frames read from websocket connections",
	})
)

package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_stream_messages_sent_total",
		Help: "Outbound messages delivered to sinks",
	}, []string{"type"})

	messagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_stream_build_failures_total",
		Help: "Outbound messages whose build failed",
	}, []string{"type"})

	requestsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftui_stream_requests_total",
		Help: "Inbound requests by type and result",
	}, []string{"type", "result"})

	staleDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftui_stream_stale_messages_dropped_total",
		Help: "Messages dropped by reorderers because their epoch was superseded",
	})
)

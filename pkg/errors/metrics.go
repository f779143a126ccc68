package errors

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reported = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "driftui_errors_reported_total",
	Help: "Errors sent to the global handler, by kind",
}, []string{"kind"})

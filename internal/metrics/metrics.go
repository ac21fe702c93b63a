// Package metrics holds the Prometheus collectors shared by the record
// pipeline and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Field outcomes recorded by ObserveField.
const (
	OutcomeOK            = "ok"
	OutcomeOverflow      = "overflow"
	OutcomeClockFallback = "clock_fallback"
	OutcomeUnparseable   = "unparseable"
	OutcomeAbsent        = "absent"
)

var (
	fieldsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assesscal",
		Name:      "fields_normalized_total",
		Help:      "Record date/time pairs normalized, by field and outcome.",
	}, []string{"field", "outcome"})

	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assesscal",
		Name:      "refreshes_total",
		Help:      "Record snapshot refreshes, by result.",
	}, []string{"result"})

	snapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "assesscal",
		Name:      "snapshot_records",
		Help:      "Number of records in the current snapshot.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assesscal",
		Name:      "http_requests_total",
		Help:      "HTTP API requests, by route and status code.",
	}, []string{"route", "code"})
)

// ObserveField counts one normalized date/time pair.
func ObserveField(field, outcome string) {
	fieldsNormalized.WithLabelValues(field, outcome).Inc()
}

// FieldCount returns the current counter value; used by tests.
func FieldCount(field, outcome string) float64 {
	return counterValue(fieldsNormalized.WithLabelValues(field, outcome))
}

// ObserveRefresh counts a snapshot refresh and records its size on success.
func ObserveRefresh(err error, records int) {
	if err != nil {
		refreshes.WithLabelValues("error").Inc()
		return
	}
	refreshes.WithLabelValues("ok").Inc()
	snapshotSize.Set(float64(records))
}

// RefreshCount returns the current refresh counter for result ("ok" or
// "error").
func RefreshCount(result string) float64 {
	return counterValue(refreshes.WithLabelValues(result))
}

// ObserveRequest counts one HTTP request.
func ObserveRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Package metrics exposes Prometheus collectors for the bank core.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/money"
)

var (
	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abank_transfers_total",
			Help: "Transfers attempted, labeled by method and outcome",
		},
		[]string{"method", "outcome"},
	)
	transferredAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "abank_transferred_amount_total",
			Help: "Sum of committed transfer amounts in major currency units",
		},
	)
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abank_registrations_total",
			Help: "Registration attempts labeled by outcome",
		},
		[]string{"outcome"},
	)
	cardsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abank_cards_issued_total",
			Help: "Cards issued labeled by card type",
		},
		[]string{"type"},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abank_http_requests_total",
			Help: "HTTP requests labeled by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "abank_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Outcome converts a service error to a metric label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := apperror.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// RecordTransfer counts one transfer attempt.
func RecordTransfer(method string, amount money.Amount, err error) {
	if method == "" {
		method = "unknown"
	}
	transfersTotal.WithLabelValues(method, Outcome(err)).Inc()
	if err == nil {
		transferredAmount.Add(amount.Decimal().InexactFloat64())
	}
}

// RecordRegistration counts one registration attempt.
func RecordRegistration(err error) {
	registrationsTotal.WithLabelValues(Outcome(err)).Inc()
}

// RecordCardIssued counts an issued card.
func RecordCardIssued(cardType string) {
	cardsIssuedTotal.WithLabelValues(cardType).Inc()
}

// RecordHTTPRequest records latency and status of one request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

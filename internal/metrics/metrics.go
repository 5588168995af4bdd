// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    bookingOperations = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "booking_operations_total",
            Help: "Booking operations by kind and outcome",
        },
        []string{"operation", "outcome"},
    )

    ticketsReserved = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickets_reserved_total",
            Help: "Ticket units taken from the quota pool",
        },
        []string{"ticket_type_id"},
    )

    ticketsReleased = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickets_released_total",
            Help: "Ticket units returned to the quota pool",
        },
        []string{"ticket_type_id"},
    )

    txDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "booking_tx_duration_seconds",
            Help:    "Duration of booking units of work",
            Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
        },
        []string{"operation"},
    )

    httpRequests = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "http_requests_total",
            Help: "HTTP requests by route and status class",
        },
        []string{"method", "route", "status"},
    )

    rateLimited = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "rate_limited_requests_total",
            Help: "Requests rejected by a token bucket",
        },
        []string{"bucket"},
    )

    httpLatency = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "http_request_duration_seconds",
            Help:    "HTTP request latency by route",
            Buckets: prometheus.DefBuckets,
        },
        []string{"method", "route"},
    )
)

// TrackBooking counts one orchestrator call.  outcome is "ok" or the error
// class returned to the client (e.g. "insufficient_stock").
func TrackBooking(operation, outcome string) {
    bookingOperations.WithLabelValues(operation, outcome).Inc()
}

// TrackReserved records qty units reserved from a ticket type.
func TrackReserved(ticketTypeID string, qty int) {
    ticketsReserved.WithLabelValues(ticketTypeID).Add(float64(qty))
}

// TrackReleased records qty units returned to a ticket type.
func TrackReleased(ticketTypeID string, qty int) {
    ticketsReleased.WithLabelValues(ticketTypeID).Add(float64(qty))
}

// ObserveTx records how long a unit of work took.
func ObserveTx(operation string, d time.Duration) {
    txDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route, status string, d time.Duration) {
    httpRequests.WithLabelValues(method, route, status).Inc()
    httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackRateLimited counts a request refused by the named bucket.
func TrackRateLimited(bucket string) {
    rateLimited.WithLabelValues(bucket).Inc()
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Session metrics
	AvailabilityGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driver_availability",
			Help: "1 for the current availability state of the driver, 0 otherwise",
		},
		[]string{"state"},
	)

	OffersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_offers_total",
			Help: "Ride offers by outcome",
		},
		[]string{"outcome"},
	)

	RidesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_rides_total",
			Help: "Rides that reached a terminal status",
		},
		[]string{"status"},
	)

	TelemetryTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_telemetry_ticks_total",
			Help: "Telemetry ticks by result",
		},
		[]string{"result"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_events_dropped_total",
			Help: "Session events a subscriber could not take",
		},
		[]string{"subscriber"},
	)

	TransportMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_transport_messages_total",
			Help: "Messages sent and received over the transport",
		},
		[]string{"direction", "type", "status"},
	)

	ConnectionErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_connection_errors_total",
			Help: "Transport disconnects and send failures",
		},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"exchange", "status"},
	)
)

// Offer outcomes
const (
	OfferReceived  = "received"
	OfferAccepted  = "accepted"
	OfferConfirmed = "confirmed"
	OfferFailed    = "failed"
	OfferDeclined  = "declined"
	OfferExpired   = "expired"
	OfferRejected  = "rejected_by_driver_state"
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// SetAvailability flips the availability gauge to state.
func SetAvailability(state string, all ...string) {
	for _, s := range all {
		AvailabilityGauge.WithLabelValues(s).Set(0)
	}
	AvailabilityGauge.WithLabelValues(state).Set(1)
}

// RecordTransport records one message crossing the transport.
func RecordTransport(direction, msgType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	TransportMessagesTotal.WithLabelValues(direction, msgType, status).Inc()
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(exchange string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(exchange, status).Inc()
}

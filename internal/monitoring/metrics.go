package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets minted per event",
		},
		[]string{"event_title"},
	)

	issuanceBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_issuance_batches_total",
			Help: "Issuance requests by outcome",
		},
		[]string{"outcome"},
	)

	artifactFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_artifact_failures_total",
			Help: "Ticket artifacts that could not be built",
		},
	)

	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_verifications_total",
			Help: "Verification results by outcome",
		},
		[]string{"outcome"},
	)

	qrDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_encode_degraded_total",
			Help: "QR encodes that fell back to a placeholder image",
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_check_ins_total",
			Help: "Organizer check-ins by outcome",
		},
		[]string{"outcome"},
	)

	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking state transitions",
		},
		[]string{"to"},
	)
)

func RecordTicketsIssued(eventTitle string, n int) {
	ticketsIssued.WithLabelValues(eventTitle).Add(float64(n))
}

func RecordBatch(outcome string) {
	issuanceBatches.WithLabelValues(outcome).Inc()
}

func RecordArtifactFailure() {
	artifactFailures.Inc()
}

func RecordVerification(outcome string) {
	verifications.WithLabelValues(outcome).Inc()
}

func RecordQRDegraded() {
	qrDegraded.Inc()
}

func RecordCheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

func RecordBookingTransition(to string) {
	bookingTransitions.WithLabelValues(to).Inc()
}

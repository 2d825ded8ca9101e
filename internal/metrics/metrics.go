package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected due to an interval conflict.",
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications dispatched successfully.",
		},
	)

	reminderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "reminder_dispatch_failures_total",
			Help:      "Reminder dispatch attempts that failed and will be retried.",
		},
	)

	schedulerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "scheduler_ticks_total",
			Help:      "Reminder scheduler ticks executed.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingConflicts,
			remindersSent,
			reminderFailures,
			schedulerTicks,
			httpRequests,
		)
	})
}

func IncBookingCreated()      { bookingsCreated.Inc() }
func IncBookingConflict()     { bookingConflicts.Inc() }
func IncReminderSent()        { remindersSent.Inc() }
func IncReminderFailure()     { reminderFailures.Inc() }
func IncSchedulerTick()       { schedulerTicks.Inc() }
func IncHTTP(endpoint string) { httpRequests.WithLabelValues(endpoint).Inc() }

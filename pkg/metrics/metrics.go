package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	BookingsTotal         prometheus.Counter
	BookingConflictsTotal *prometheus.CounterVec
	CancellationsTotal    *prometheus.CounterVec
	CheckInsTotal         prometheus.Counter

	// Schedule metrics
	SlotsCreated           prometheus.Counter
	ScheduleConflictsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BookingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Total number of appointments booked",
		}),
		BookingConflictsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected by conflict checks",
		}, []string{"reason"}),
		CancellationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Appointments cancelled, by actor role",
		}, []string{"role"}),
		CheckInsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Appointments checked in",
		}),
		SlotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_slots_created_total",
			Help:      "Schedule slots created",
		}),
		ScheduleConflictsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_conflicts_total",
			Help:      "Slot writes rejected by overlap checks",
		}, []string{"scope"}),
	}
}

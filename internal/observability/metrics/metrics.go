package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking form funnel.
type BookingMetrics struct {
	submissionsTotal *prometheus.CounterVec
	storeErrorsTotal *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	statusChanges    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking form submissions by outcome",
		}, []string{"outcome"}),
		storeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "store_errors_total",
			Help:      "Failed round trips to the rate limit or lead store",
		}, []string{"store"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "store_latency_seconds",
			Help:      "Latency of rate limit and lead store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "leads",
			Name:      "status_changes_total",
			Help:      "Admin lead status updates by target status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.storeErrorsTotal, m.storeLatency, m.statusChanges)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStoreCall(store string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(store).Observe(seconds)
	if err != nil {
		m.storeErrorsTotal.WithLabelValues(store).Inc()
	}
}

func (m *BookingMetrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics exposes counters/histograms for the lead intake pipeline.
type LeadMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	submitDuration     *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dollarport",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead form submissions by route and outcome",
		}, []string{"route", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dollarport",
			Subsystem: "leads",
			Name:      "notifications_total",
			Help:      "Total lead notifications by notifier, delivery and reason",
		}, []string{"notifier", "sent", "reason"}),
		submitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dollarport",
			Subsystem: "leads",
			Name:      "submit_duration_seconds",
			Help:      "Latency of lead submissions including notification fan-out",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.notificationsTotal, m.submitDuration)
	return m
}

// ObserveSubmission records one handled submission.
func (m *LeadMetrics) ObserveSubmission(route, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(route, outcome).Inc()
	m.submitDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveNotification records one notifier outcome.
func (m *LeadMetrics) ObserveNotification(notifier string, sent bool, reason string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(notifier, strconv.FormatBool(sent), reason).Inc()
}

package metrics

import (
	"time"

	"assistance_alerts/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes notification counts and evaluation health.
type Metrics struct {
	Alerts                 *prometheus.GaugeVec
	TotalAlerts            prometheus.Gauge
	Evaluations            *prometheus.CounterVec
	FetchErrors            *prometheus.CounterVec
	AcknowledgePersistFail prometheus.Counter
	FetchDuration          prometheus.Histogram
}

// New registers every metric on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Alerts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "assistance_alerts_unacknowledged",
			Help: "Unacknowledged alerts in the last published view, by kind",
		}, []string{"source", "kind"}),
		TotalAlerts: f.NewGauge(prometheus.GaugeOpts{
			Name: "assistance_alerts_unacknowledged_total",
			Help: "Badge count of the last published view",
		}),
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assistance_alerts_evaluations_total",
			Help: "Evaluation passes, by trigger",
		}, []string{"trigger"}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assistance_alerts_fetch_errors_total",
			Help: "Failed record source fetches, by source",
		}, []string{"source"}),
		AcknowledgePersistFail: f.NewCounter(prometheus.CounterOpts{
			Name: "assistance_alerts_acknowledgement_persist_errors_total",
			Help: "Acknowledgement changes that could not be written to the store",
		}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistance_alerts_fetch_duration_seconds",
			Help:    "Duration of fetching both record snapshots",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ObserveView(v notification.View) {
	m.Alerts.WithLabelValues(string(notification.SourceLoan), string(notification.KindOverdue)).Set(float64(len(v.LoanAlerts.Overdue)))
	m.Alerts.WithLabelValues(string(notification.SourceLoan), string(notification.KindDueSoon)).Set(float64(len(v.LoanAlerts.DueSoon)))
	m.Alerts.WithLabelValues(string(notification.SourceCampaign), string(notification.KindRecentlyEnded)).Set(float64(len(v.CampaignAlerts.RecentlyEnded)))
	m.Alerts.WithLabelValues(string(notification.SourceCampaign), string(notification.KindEndingSoon)).Set(float64(len(v.CampaignAlerts.EndingSoon)))
	m.TotalAlerts.Set(float64(v.TotalCount))
}

func (m *Metrics) IncEvaluations(trigger string) {
	m.Evaluations.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncFetchErrors(source string) {
	m.FetchErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) IncAcknowledgementPersistErrors() {
	m.AcknowledgePersistFail.Inc()
}

func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	m.FetchDuration.Observe(d.Seconds())
}

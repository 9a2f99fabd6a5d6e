package rotation

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	nominations          *prometheus.CounterVec
	picks                prometheus.Counter
	rejections           *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
}

func newServiceMetrics(registerer prometheus.Registerer) *serviceMetrics {
	if registerer == nil {
		// Unregistered collectors still count; nothing scrapes them
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &serviceMetrics{
		nominations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_nominations_total",
			Help: "number of nominations created, by source",
		}, []string{"source"}),
		picks: factory.NewCounter(prometheus.CounterOpts{
			Name: "gameclub_picks_total",
			Help: "number of games picked",
		}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_rejections_total",
			Help: "number of nomination or selection requests rejected by a rotation rule",
		}, []string{"reason"}),
		notificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_notification_failures_total",
			Help: "number of best-effort notifications that could not be delivered",
		}, []string{"kind"}),
	}
}

func (m *serviceMetrics) reject(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidMonth), errors.Is(err, ErrInvalidInput):
		m.rejections.WithLabelValues("invalid_input").Inc()
	case errors.Is(err, ErrMonthAlreadyPicked):
		m.rejections.WithLabelValues("already_picked").Inc()
	case errors.Is(err, ErrNotNominated):
		m.rejections.WithLabelValues("not_nominated").Inc()
	case errors.Is(err, ErrWrongNominee):
		m.rejections.WithLabelValues("wrong_nominee").Inc()
	case errors.Is(err, ErrNotEligible):
		m.rejections.WithLabelValues("not_eligible").Inc()
	}
}

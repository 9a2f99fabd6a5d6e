package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type schedulerMetrics struct {
	runs                 *prometheus.CounterVec
	announcementFailures *prometheus.CounterVec
}

func newSchedulerMetrics(registerer prometheus.Registerer) *schedulerMetrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &schedulerMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_scheduler_runs_total",
			Help: "number of scheduled job runs, by job and result",
		}, []string{"job", "result"}),
		announcementFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_announcement_failures_total",
			Help: "number of guild announcements that could not be delivered, by job",
		}, []string{"job"}),
	}
}

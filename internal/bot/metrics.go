package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type botMetrics struct {
	commands *prometheus.CounterVec
	prompts  *prometheus.CounterVec
}

func newBotMetrics(registerer prometheus.Registerer) *botMetrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &botMetrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_commands_total",
			Help: "number of slash commands received, by command and parse result",
		}, []string{"command", "result"}),
		prompts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameclub_selection_prompts_total",
			Help: "number of game selection menus, by outcome",
		}, []string{"outcome"}),
	}
}

package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const worldIDLabel = "world_id"

var (
	worldAgents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_agents",
		Help: "The number of live agents in a simulation world.",
	}, []string{
		worldIDLabel,
	})

	worldSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_steps",
		Help: "The number of simulation steps run.",
	}, []string{
		worldIDLabel,
	})
)

func instrumentAgents(worldID string, count int) {
	worldAgents.With(prometheus.Labels{worldIDLabel: worldID}).Set(float64(count))
}

func instrumentStep(worldID string) {
	worldSteps.With(prometheus.Labels{worldIDLabel: worldID}).Inc()
}

package daemon

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executed native commands and dispatched events.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	commands *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daemon",
			Name:      "commands_total",
			Help:      "Native control commands executed, by subcommand and result.",
		}, []string{"subcommand", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daemon",
			Name:      "events_total",
			Help:      "Events produced for the service main, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.events)
	}
	return m
}

func (m *Metrics) observeCommand(subcommand string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	var spawnErr *SpawnError
	var cmdErr *CommandError
	switch {
	case err == nil:
	case errors.As(err, &spawnErr):
		result = "spawn_error"
	case errors.As(err, &cmdErr):
		result = "command_error"
	default:
		result = "error"
	}
	m.commands.WithLabelValues(subcommand, result).Inc()
}

func (m *Metrics) observeEvent(kind EventKind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind.String()).Inc()
}

// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CommandsRun      *prometheus.CounterVec
	ExternalsStarted prometheus.Counter
	ExternalExits    *prometheus.CounterVec
	CaughtFailures   *prometheus.CounterVec
	Interrupts       prometheus.Counter
	JoinRows         *prometheus.CounterVec
	Sessions         prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CommandsRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipesh_commands_total",
				Help: "Total number of builtin command invocations",
			},
			[]string{"command"},
		),
		ExternalsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipesh_externals_started_total",
				Help: "Total number of external processes started",
			},
		),
		ExternalExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipesh_external_exits_total",
				Help: "Total number of external process exits by status",
			},
			[]string{"status"},
		),
		CaughtFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipesh_try_caught_total",
				Help: "Total number of failures recovered by try",
			},
			[]string{"kind"},
		),
		Interrupts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipesh_interrupts_total",
				Help: "Total number of interrupted pipelines",
			},
		),
		JoinRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipesh_join_rows_total",
				Help: "Total number of rows produced by join",
			},
			[]string{"mode"},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipesh_sessions_active",
				Help: "Number of active interactive sessions",
			},
		),
	}

	m.registry.MustRegister(
		m.CommandsRun,
		m.ExternalsStarted,
		m.ExternalExits,
		m.CaughtFailures,
		m.Interrupts,
		m.JoinRows,
		m.Sessions,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) CommandRun(name string) {
	if m != nil {
		m.CommandsRun.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) ExternalStarted() {
	if m != nil {
		m.ExternalsStarted.Inc()
	}
}

// ExternalExited records an exit status as "zero" or "nonzero".
func (m *Metrics) ExternalExited(code int) {
	if m == nil {
		return
	}
	status := "zero"
	if code != 0 {
		status = "nonzero"
	}
	m.ExternalExits.WithLabelValues(status).Inc()
}

// FailureCaught records a recovered failure, kind is "error" or
// "exit_status".
func (m *Metrics) FailureCaught(kind string) {
	if m != nil {
		m.CaughtFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Interrupted() {
	if m != nil {
		m.Interrupts.Inc()
	}
}

func (m *Metrics) JoinRowsProduced(mode string, n int) {
	if m != nil && n > 0 {
		m.JoinRows.WithLabelValues(mode).Add(float64(n))
	}
}

// SessionStarted increments the active session gauge and returns a func
// decrementing it.
func (m *Metrics) SessionStarted() func() {
	if m == nil {
		return func() {}
	}
	m.Sessions.Inc()
	return m.Sessions.Dec
}

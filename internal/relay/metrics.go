package relay

import "github.com/prometheus/client_golang/prometheus"

// Command outcomes recorded in ghrelay_commands_total.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeDenied  = "denied"
	outcomeUnknown = "unknown"
)

// noCommand is the command label for denied and unrecognized commands, whose
// names are arbitrary chat input.
const noCommand = "-"

// Metrics are the relay's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	updates    prometheus.Counter
	commands   *prometheus.CounterVec
	pollErrors prometheus.Counter
	dispatches *prometheus.CounterVec
}

// NewMetrics creates the relay collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghrelay_updates_total",
			Help: "Updates received from the chat platform.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghrelay_commands_total",
			Help: "Commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghrelay_poll_errors_total",
			Help: "Failed long-poll requests.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghrelay_dispatches_total",
			Help: "repository_dispatch events accepted by GitHub, by event type.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.updates, m.commands, m.pollErrors, m.dispatches)
	}
	return m
}

func (m *Metrics) update() {
	if m == nil {
		return
	}
	m.updates.Inc()
}

func (m *Metrics) command(name, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) pollError() {
	if m == nil {
		return
	}
	m.pollErrors.Inc()
}

func (m *Metrics) dispatch(event string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(event).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventSignup  = "signup"
	EventLogin   = "login"
	EventLogout  = "logout"
	EventRefresh = "refresh"
	EventProfile = "profile"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthMetrics counts auth events by outcome. Rejected means the client was
// at fault (bad input, bad credentials, bad token); error means the server was.
type AuthMetrics struct {
	events *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*AuthMetrics, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Auth operations handled, by event and outcome.",
	}, []string{"event", "outcome"})

	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &AuthMetrics{events: events}, nil
}

func (m *AuthMetrics) Record(event, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, outcome).Inc()
}

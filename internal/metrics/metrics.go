package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LoginAttempts counts login attempts by outcome
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpower",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts handled by the gateway",
		},
		[]string{"outcome"},
	)

	// SessionClears counts session records wiped from the token store
	SessionClears = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpower",
			Name:      "session_clears_total",
			Help:      "Total number of session records cleared",
		},
		[]string{"reason"},
	)

	// GuardDecisions counts route guard outcomes
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpower",
			Name:      "guard_decisions_total",
			Help:      "Total number of route guard evaluations by resulting state",
		},
		[]string{"state"},
	)

	// WebsocketClients tracks open session event connections
	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fitpower",
			Name:      "websocket_clients",
			Help:      "Number of connected session event websockets",
		},
	)

	registerOnce sync.Once
)

// Register adds every collector to reg. Later calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(LoginAttempts, SessionClears, GuardDecisions, WebsocketClients)
	})
}

package metrics

import (
	"time"

	"club-auth/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the login workflow's Prometheus collectors.
type Metrics struct {
	LoginsTotal          *prometheus.CounterVec
	LoginDuration        *prometheus.HistogramVec
	AccountsCreatedTotal *prometheus.CounterVec
	RefreshesTotal       *prometheus.CounterVec
	LogoutsTotal         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_auth_logins_total",
			Help: "Login attempts by provider, outcome and the step a failure stopped at.",
		}, []string{"provider", "outcome", "step"}),
		LoginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "club_auth_login_duration_seconds",
			Help:    "Wall time of a login attempt, provider round-trips included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		AccountsCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_auth_accounts_created_total",
			Help: "Accounts created on first login.",
		}, []string{"provider"}),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_auth_refreshes_total",
			Help: "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		LogoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_auth_logouts_total",
			Help: "Logouts by provider and upstream revocation outcome.",
		}, []string{"provider", "upstream"}),
	}

	if reg == nil {
		return m
	}

	for _, c := range []prometheus.Collector{
		m.LoginsTotal,
		m.LoginDuration,
		m.AccountsCreatedTotal,
		m.RefreshesTotal,
		m.LogoutsTotal,
	} {
		if err := reg.Register(c); err != nil {
			logger.Warn("failed to register metric", map[string]any{"error": err.Error()})
		}
	}
	return m
}

// ObserveLogin records one finished login attempt. step is empty on success.
func (m *Metrics) ObserveLogin(provider, outcome, step string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(provider, outcome, step).Inc()
	m.LoginDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) AccountCreated(provider string) {
	if m == nil {
		return
	}
	m.AccountsCreatedTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) Refreshed(outcome string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LoggedOut(provider, upstream string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(provider, upstream).Inc()
}

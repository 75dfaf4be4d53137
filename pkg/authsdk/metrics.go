package authsdk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for a client and its controller.
//
// Metrics collected:
//   - rollcall_auth_logins_total: login attempts by result
//   - rollcall_auth_refresh_requests_total: callers asking for a refresh
//   - rollcall_auth_refreshes_total: refresh calls sent to the backend by result
//   - rollcall_auth_retries_total: requests replayed after a refresh
//   - rollcall_auth_forced_logouts_total: sessions cleared by a failed refresh
type Metrics struct {
	logins          *prometheus.CounterVec
	refreshRequests prometheus.Counter
	refreshes       *prometheus.CounterVec
	retries         prometheus.Counter
	forcedLogouts   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests and embedders without a
// metrics endpoint want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),

		refreshRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "auth",
			Name:      "refresh_requests_total",
			Help:      "Callers that asked for an access token refresh, coalesced or not.",
		}),

		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Refresh calls sent to the backend by result.",
		}, []string{"result"}),

		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "auth",
			Name:      "retries_total",
			Help:      "Requests replayed after a 401.",
		}),

		forcedLogouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "auth",
			Name:      "forced_logouts_total",
			Help:      "Sessions cleared because a refresh failed.",
		}),
	}
}

// Label values for the result label.
const (
	resultSuccess    = "success"
	resultFailure    = "failure"
	resultSuperseded = "superseded"
)

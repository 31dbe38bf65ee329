// Package metrics defines the custom Prometheus metrics of the user service.
// They register with the default registry at init and are served by the ops
// listener next to the echoprometheus HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_service"

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "validation", "invalid_payload", "email_taken" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "validation", "invalid_payload", "bad_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthFilterTotal counts what the auth filter concluded for each request it
// inspected.
// Label:
//   - outcome: "no_token", "invalid_token", "authenticated" or "failed"
var AuthFilterTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_filter_total",
		Help:      "Total number of requests inspected by the auth filter, by outcome.",
	},
	[]string{"outcome"},
)

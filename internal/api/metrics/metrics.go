// Package metrics defines the custom Prometheus metrics of the customer
// identity API. It is the single source of truth for metric names, labels,
// and help strings.
//
// All metrics register with the default registry on package init, so the
// /metrics endpoint exposes them next to the HTTP request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// Operation labels.
const (
	OpCreate       = "create"
	OpEdit         = "edit"
	OpEditPassword = "edit_password"
	OpDelete       = "delete"
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UserOperationsTotal counts user lifecycle mutations.
// Labels:
//   - operation: create, edit, edit_password, delete
//   - result: ok, rejected (store refused), not_found, error (fault)
var UserOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_operations_total",
		Help:      "Total number of user lifecycle operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// RoleAssignmentFailuresTotal counts default role assignments that failed
// while the surrounding user creation still succeeded.
var RoleAssignmentFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_assignment_failures_total",
		Help:      "Total number of swallowed role assignment failures during user creation.",
	},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts access tokens issued.
// Labels:
//   - grant_type: password or client_credentials
//   - client_id: the requesting client
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
	[]string{"grant_type", "client_id"},
)

// TokenFailuresTotal counts rejected token requests.
// Label:
//   - reason: the OAuth error code (e.g. "invalid_grant", "invalid_client")
var TokenFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_failures_total",
		Help:      "Total number of rejected token requests, by OAuth error code.",
	},
	[]string{"reason"},
)

// LockoutsTotal counts users locked out after repeated failed sign-ins.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of user lockouts triggered by failed sign-ins.",
	},
)

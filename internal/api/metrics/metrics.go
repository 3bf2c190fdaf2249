// Package metrics defines all custom Prometheus metrics for the commander
// API. It is the single source of truth for metric names, labels, and help
// strings; promauto registers everything with the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "commander"

// ── Authentication metrics ───────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "authorized", "wait_2fa", or "failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by outcome.",
	},
	[]string{"result"},
)

// SessionsIssuedTotal counts issued session tokens.
// Label:
//   - status: session status at issuance (e.g. "AUTHORIZED", "WAIT_2FA")
var SessionsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of session tokens issued, by status.",
	},
	[]string{"status"},
)

// TwoFAVerificationsTotal counts 2FA verification attempts.
// Labels:
//   - method: "totp", "recovery", or "absent"
//   - result: "ok" or "failed"
var TwoFAVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "twofa_verifications_total",
		Help:      "Total number of two-factor verification attempts.",
	},
	[]string{"method", "result"},
)

// ── Cache coherence metrics ──────────────────────────────────────────────────

// CacheRefreshTotal counts snapshot refreshes per cache.
// Labels:
//   - cache: "users", "permissions", "user_permissions", "twofa"
//   - result: "ok" or "error" (error keeps the stale snapshot)
var CacheRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_refresh_total",
		Help:      "Total number of cache snapshot refreshes, by cache and result.",
	},
	[]string{"cache", "result"},
)

// BusMessagesTotal counts invalidation-bus traffic.
// Labels:
//   - topic: the invalidation topic token
//   - direction: "published", "publish_error", or "received"
var BusMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bus_messages_total",
		Help:      "Total number of invalidation messages, by topic and direction.",
	},
	[]string{"topic", "direction"},
)

// ── Audit metrics ────────────────────────────────────────────────────────────

// AuditEntriesTotal counts audit-trail writes.
// Label:
//   - result: "ok" or "error"
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Total number of audit trail writes, by result.",
	},
	[]string{"result"},
)

// Package metrics defines the Prometheus metrics for tokengate. Metrics are
// registered with the default registry on import and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tokengate"

// ── Inbound token metrics ─────────────────────────────────────────────────────

// TokensIssuedTotal counts tokens minted by the issuer.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued.",
	},
)

// AuthFailuresTotal counts rejected issue and authorize calls.
// Labels:
//   - operation: "issue" or "authorize"
//   - kind: the failure kind (e.g. "bad_credentials", "expired"), or "internal"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of failed token issue and authorize calls, by kind.",
	},
	[]string{"operation", "kind"},
)

// AuthorizationsTotal counts successful token verifications.
var AuthorizationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorizations_total",
		Help:      "Total number of tokens successfully authorized.",
	},
)

// ── Outbound credential exchange metrics ──────────────────────────────────────

// ExchangeCacheTotal counts cache lookups by the credential exchange cache.
// Label:
//   - result: "hit", "store_hit" (shared store) or "miss"
var ExchangeCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_cache_total",
		Help:      "Total number of credential exchange cache lookups, by result.",
	},
	[]string{"result"},
)

// ExchangeRequestsTotal counts outbound exchange calls.
// Label:
//   - result: "ok" or "error"
var ExchangeRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_requests_total",
		Help:      "Total number of outbound credential exchange calls, by result.",
	},
	[]string{"result"},
)

// ExchangeDuration measures outbound exchange calls end-to-end.
var ExchangeDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "exchange_duration_seconds",
		Help:      "Duration of outbound credential exchange calls.",
		Buckets:   prometheus.DefBuckets,
	},
)

// FailureKind returns the label used for a failed call.
func FailureKind(kind string) string {
	if kind == "" {
		return "internal"
	}
	return kind
}

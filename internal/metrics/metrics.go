// Package metrics defines the bot's Prometheus metrics. It is the single
// source of truth for metric names, labels, and help strings.
//
// Metrics register with the default registry on import; the health server
// exposes them on /metrics when enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kinouz"

// UpdatesTotal counts inbound updates by kind (message/callback/chat_join).
var UpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Total number of inbound Telegram updates received.",
	},
	[]string{"kind"},
)

// GateDeniedTotal counts interactions blocked by the membership gate.
var GateDeniedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_denied_total",
		Help:      "Total number of interactions denied by the channel-membership gate.",
	},
)

// FlowsCompletedTotal counts flows that ran to their terminal action.
// Label:
//   - flow: add_movie, delete, search, broadcast_wait, retrieve
var FlowsCompletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flows_completed_total",
		Help:      "Total number of conversation flows completed, by flow kind.",
	},
	[]string{"flow"},
)

// LookupsTotal counts movie code lookups by result (hit/miss).
var LookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Total number of movie code lookups, by result (hit/miss).",
	},
	[]string{"result"},
)

// BroadcastDeliveriesTotal counts per-recipient broadcast outcomes.
var BroadcastDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_deliveries_total",
		Help:      "Total number of broadcast relay attempts, by result (ok/fail).",
	},
	[]string{"result"},
)

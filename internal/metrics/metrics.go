package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts inbound feed messages by type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_messages_total",
			Help: "Total number of inbound feed messages by type",
		},
		[]string{"type"},
	)

	// EventsTotal counts emitted order events by kind.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_events_total",
			Help: "Total number of emitted order events by kind",
		},
		[]string{"event"},
	)

	// SyntheticEventsTotal counts events fabricated for inferred liquidity.
	SyntheticEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heimdall_synthetic_events_total",
			Help: "Total number of events synthesized for inferred liquidity",
		},
	)

	// BookDepth tracks populated price levels per side.
	BookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "heimdall_book_depth",
			Help: "Current number of populated price levels",
		},
		[]string{"side"},
	)

	// PendingLiquidity tracks outstanding prediction entries per side.
	PendingLiquidity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "heimdall_pending_liquidity_entries",
			Help: "Outstanding pending-liquidity prediction entries",
		},
		[]string{"side", "kind"},
	)
)

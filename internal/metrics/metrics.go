// Package metrics exposes Prometheus counters for the polling loops and the
// broadcast path. Registration uses the default registry; the embedding
// application decides whether and where to serve it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MonitorPolls counts network monitor poll ticks by coin and result.
	MonitorPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasko",
		Subsystem: "monitor",
		Name:      "polls_total",
		Help:      "Network monitor poll ticks.",
	}, []string{"coin", "result"})

	// Broadcasts counts raw transaction submissions by coin and result.
	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasko",
		Subsystem: "chain",
		Name:      "broadcasts_total",
		Help:      "Raw transaction broadcast attempts.",
	}, []string{"coin", "result"})

	// ScannedMessages counts messages the block scanner extracted.
	ScannedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasko",
		Subsystem: "scanner",
		Name:      "messages_total",
		Help:      "Messages discovered by the block scanner.",
	}, []string{"coin"})
)

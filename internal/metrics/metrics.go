// Package metrics exposes prometheus instrumentation for the engine
// and the relay. Registered on the default registry; the relay daemon
// serves them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcvault_messages_sent_total",
		Help: "Messages sent by the local context.",
	})

	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcvault_events_applied_total",
		Help: "Inbound transport events applied to local state, by kind.",
	}, []string{"kind"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcvault_events_dropped_total",
		Help: "Inbound transport events dropped before application, by reason.",
	}, []string{"reason"})

	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calcvault_relay_connections",
		Help: "Endpoints currently attached to the relay.",
	})

	RelayFramesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcvault_relay_frames_relayed_total",
		Help: "Frames fanned out by the relay.",
	})

	RelayFramesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcvault_relay_frames_throttled_total",
		Help: "Frames rejected by the per-connection rate limit.",
	})
)

// Drop reasons for EventsDropped.
const (
	ReasonBlocked = "blocked_origin"
	ReasonDecode  = "decode_error"
)

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibook_notify_frames_received_total",
			Help: "Total number of inbound frames dispatched, by resolved category",
		},
		[]string{"category"},
	)

	frameDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medibook_notify_frame_decode_failures_total",
			Help: "Total number of inbound frames discarded because they failed to parse",
		},
	)

	notificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibook_notify_notifications_stored_total",
			Help: "Total number of notifications added to the store",
		},
		[]string{"category"},
	)

	duplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibook_notify_duplicates_dropped_total",
			Help: "Total number of candidate notifications discarded as duplicates",
		},
		[]string{"category"},
	)

	connectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medibook_notify_connect_attempts_total",
			Help: "Total number of WebSocket dial attempts, including automatic retries",
		},
	)

	connectionUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medibook_notify_connection_up",
			Help: "Whether the notification socket is currently connected (1) or not (0)",
		},
	)
)

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total operator HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Operator HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	broadcastPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "broadcast",
			Name:      "packets_total",
			Help:      "GameState packets handed to the transport, by result.",
		},
		[]string{"result"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Discarded datagrams by packet kind and reason.",
		},
		[]string{"kind", "reason"},
	)
	returnMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "returns",
			Name:      "messages_total",
			Help:      "Decoded ReturnData messages by kind and outcome.",
		},
		[]string{"message", "outcome"},
	)
	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "refctl",
			Subsystem: "returns",
			Name:      "pending_requests",
			Help:      "Advisory penalty requests awaiting an operator decision.",
		},
	)
	directives = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "game",
			Name:      "directives_total",
			Help:      "Directives applied to the game model, by result.",
		},
		[]string{"directive", "result"},
	)
	sequenceGaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refctl",
			Subsystem: "listener",
			Name:      "sequence_events_total",
			Help:      "Packets lost or reordered as seen by a listener.",
		},
		[]string{"event"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			broadcastPackets,
			decodeErrors,
			returnMessages,
			pendingRequests,
			directives,
			sequenceGaps,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordBroadcast(err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	broadcastPackets.WithLabelValues(result).Inc()
}

func RecordDecodeError(kind, reason string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(kind, reason).Inc()
}

func RecordReturnMessage(message, outcome string) {
	RegisterMetrics()
	returnMessages.WithLabelValues(message, outcome).Inc()
}

func SetPendingRequests(n int) {
	RegisterMetrics()
	pendingRequests.Set(float64(n))
}

func RecordDirective(directive string, err error) {
	RegisterMetrics()
	result := "applied"
	if err != nil {
		result = "rejected"
	}
	directives.WithLabelValues(directive, result).Inc()
}

func RecordSequenceEvent(event string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	sequenceGaps.WithLabelValues(event).Add(float64(n))
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deckctl",
			Subsystem: "wire",
			Name:      "frames_decoded_total",
			Help:      "Frames decoded from the device byte stream.",
		},
	)
	framingErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deckctl",
			Subsystem: "wire",
			Name:      "framing_errors_total",
			Help:      "Desynchronization faults observed by the frame decoder.",
		},
	)
	unmatchedReplies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deckctl",
			Subsystem: "wire",
			Name:      "unmatched_replies_total",
			Help:      "Reply frames whose ticket had no pending request.",
		},
	)
	unknownMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "deckctl",
			Subsystem: "wire",
			Name:      "unknown_messages_total",
			Help:      "Frames with a message type outside the known set.",
		},
	)
	eventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckctl",
			Subsystem: "input",
			Name:      "events_total",
			Help:      "Input events dispatched to listeners.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesDecoded, framingErrors, unmatchedReplies, unknownMessages, eventsDispatched)
	})
}

func RecordFrameDecoded() {
	RegisterMetrics()
	framesDecoded.Inc()
}

func RecordFramingError() {
	RegisterMetrics()
	framingErrors.Inc()
}

func RecordUnmatchedReply() {
	RegisterMetrics()
	unmatchedReplies.Inc()
}

func RecordUnknownMessage() {
	RegisterMetrics()
	unknownMessages.Inc()
}

func RecordEvent(kind string) {
	RegisterMetrics()
	eventsDispatched.WithLabelValues(kind).Inc()
}

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
)

// PrometheusCollector implements ports.MetricsRecorder on top of a
// process-wide prometheus registry.
type PrometheusCollector struct {
	framesCapturedTotal  prometheus.Counter
	framesEncodedTotal   prometheus.Counter
	framesDroppedTotal   prometheus.Counter
	framesDeliveredTotal prometheus.Counter
	bytesSentTotal       prometheus.Counter
	bytesReceivedTotal   prometheus.Counter

	sessionState        *prometheus.GaugeVec
	negotiationDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		framesCapturedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_frames_captured_total",
			Help: "Frames grabbed from the display",
		}),

		framesEncodedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_frames_encoded_total",
			Help: "Frames compressed by the video encoder",
		}),

		framesDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_frames_dropped_total",
			Help: "Frames dropped under backpressure",
		}),

		framesDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_frames_delivered_total",
			Help: "Frames fully written to or read from the transport",
		}),

		bytesSentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_bytes_sent_total",
			Help: "Media bytes written to the transport",
		}),

		bytesReceivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "screenlink_bytes_received_total",
			Help: "Media bytes read from the transport",
		}),

		sessionState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "screenlink_session_state",
			Help: "Current session state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		negotiationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "screenlink_negotiation_duration_seconds",
			Help:    "Time from negotiation start to a confirmed transport",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

func (p *PrometheusCollector) RecordStateTransition(old, new domain.SessionState) {
	p.sessionState.WithLabelValues(string(old)).Set(0)
	p.sessionState.WithLabelValues(string(new)).Set(1)
}

func (p *PrometheusCollector) RecordNegotiationDuration(seconds float64) {
	p.negotiationDuration.Observe(seconds)
}

func (p *PrometheusCollector) RecordFrameCaptured() {
	p.framesCapturedTotal.Inc()
}

func (p *PrometheusCollector) RecordFrameEncoded() {
	p.framesEncodedTotal.Inc()
}

func (p *PrometheusCollector) RecordFrameDropped() {
	p.framesDroppedTotal.Inc()
}

func (p *PrometheusCollector) RecordFrameDelivered() {
	p.framesDeliveredTotal.Inc()
}

func (p *PrometheusCollector) AddBytesSent(n int) {
	p.bytesSentTotal.Add(float64(n))
}

func (p *PrometheusCollector) AddBytesReceived(n int) {
	p.bytesReceivedTotal.Add(float64(n))
}

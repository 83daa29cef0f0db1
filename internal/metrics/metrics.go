// Package metrics exports the DDP receiver counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

// Metrics implements ddp.Metrics with Prometheus collectors.
//
// All metrics use the ddp_ prefix. Device ids are reported as decimal labels.
type Metrics struct {
	// PacketsTotal counts datagrams by dispatch outcome
	PacketsTotal *prometheus.CounterVec

	// BytesTotal counts datagram bytes by dispatch outcome
	BytesTotal *prometheus.CounterVec

	// WritesTotal counts buffer writes by device and result ("applied", "dropped")
	WritesTotal *prometheus.CounterVec

	// FramesTotal counts frame callbacks by device
	FramesTotal *prometheus.CounterVec

	// QueriesTotal counts query replies by device
	QueriesTotal *prometheus.CounterVec

	// ReplyBytes tracks the payload size of query replies
	ReplyBytes prometheus.Histogram
}

var _ ddp.Metrics = (*Metrics)(nil)

// NewMetrics creates DDP metrics and registers them with reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddp_packets_total",
				Help: "Total DDP datagrams received by dispatch outcome",
			},
			[]string{"outcome"},
		),
		BytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddp_received_bytes_total",
				Help: "Total DDP datagram bytes received by dispatch outcome",
			},
			[]string{"outcome"},
		),
		WritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddp_buffer_writes_total",
				Help: "Total buffer writes by device and result",
			},
			[]string{"device", "result"},
		),
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddp_frames_total",
				Help: "Total pushed frames delivered to callbacks by device",
			},
			[]string{"device"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddp_queries_total",
				Help: "Total query replies sent by device",
			},
			[]string{"device"},
		),
		ReplyBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ddp_reply_payload_bytes",
				Help:    "Payload size of query replies in bytes",
				Buckets: []float64{0, 64, 256, 1024, 4096, 16384, 65536},
			},
		),
	}

	reg.MustRegister(
		m.PacketsTotal,
		m.BytesTotal,
		m.WritesTotal,
		m.FramesTotal,
		m.QueriesTotal,
		m.ReplyBytes,
	)

	return m
}

// RecordPacket records one received datagram.
func (m *Metrics) RecordPacket(outcome ddp.Outcome, size int) {
	if m == nil {
		return
	}
	m.PacketsTotal.WithLabelValues(string(outcome)).Inc()
	m.BytesTotal.WithLabelValues(string(outcome)).Add(float64(size))
}

// RecordWrite records one buffer write attempt.
func (m *Metrics) RecordWrite(deviceID byte, _ int, applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "dropped"
	}
	m.WritesTotal.WithLabelValues(deviceLabel(deviceID), result).Inc()
}

// RecordFrame records one frame callback.
func (m *Metrics) RecordFrame(deviceID byte) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(deviceLabel(deviceID)).Inc()
}

// RecordQuery records one query reply.
func (m *Metrics) RecordQuery(deviceID byte, payloadLen int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(deviceLabel(deviceID)).Inc()
	m.ReplyBytes.Observe(float64(payloadLen))
}

func deviceLabel(id byte) string {
	return strconv.Itoa(int(id))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.RecordPacket(ddp.OutcomeData, 10)
	m.RecordWrite(1, 3, true)
	m.RecordFrame(1)
	m.RecordQuery(ddp.IDStatus, 0)
}

func TestMetrics_RecordPacket(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordPacket(ddp.OutcomeData, 13)
	m.RecordPacket(ddp.OutcomeData, 20)
	m.RecordPacket(ddp.OutcomeInvalid, 3)

	if v := counterValue(t, m.PacketsTotal, string(ddp.OutcomeData)); v != 2 {
		t.Errorf("PacketsTotal{outcome=data} = %f, want 2", v)
	}
	if v := counterValue(t, m.BytesTotal, string(ddp.OutcomeData)); v != 33 {
		t.Errorf("BytesTotal{outcome=data} = %f, want 33", v)
	}
	if v := counterValue(t, m.PacketsTotal, string(ddp.OutcomeInvalid)); v != 1 {
		t.Errorf("PacketsTotal{outcome=invalid} = %f, want 1", v)
	}
}

func TestMetrics_RecordWrite(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordWrite(1, 3, true)
	m.RecordWrite(1, 3, true)
	m.RecordWrite(1, 5000, false)

	if v := counterValue(t, m.WritesTotal, "1", "applied"); v != 2 {
		t.Errorf("WritesTotal{device=1,result=applied} = %f, want 2", v)
	}
	if v := counterValue(t, m.WritesTotal, "1", "dropped"); v != 1 {
		t.Errorf("WritesTotal{device=1,result=dropped} = %f, want 1", v)
	}
}

func TestMetrics_RecordFrameAndQuery(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordFrame(255)
	m.RecordQuery(251, 42)

	if v := counterValue(t, m.FramesTotal, "255"); v != 1 {
		t.Errorf("FramesTotal{device=255} = %f, want 1", v)
	}
	if v := counterValue(t, m.QueriesTotal, "251"); v != 1 {
		t.Errorf("QueriesTotal{device=251} = %f, want 1", v)
	}

	var metric io_prometheus_client.Metric
	if err := m.ReplyBytes.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := metric.GetHistogram().GetSampleSum(); got != 42 {
		t.Errorf("ReplyBytes sum = %f, want 42", got)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected second registration to panic")
		}
	}()
	NewMetrics(reg)
}

func TestMetrics_WithReceiver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	rx := ddp.NewReceiver(nil, ddp.WithMetrics(m))
	rx.ConfigureOutput(ddp.IDDisplay, 3, func(byte, []byte, *uint32) {})

	packet := append(ddp.EncodeHeader(ddp.FlagVersion1|ddp.FlagPush, ddp.IDDisplay, 0, 3), 1, 2, 3)
	if err := rx.Handle(packet, nil); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if v := counterValue(t, m.PacketsTotal, string(ddp.OutcomeData)); v != 1 {
		t.Errorf("PacketsTotal{outcome=data} = %f, want 1", v)
	}
	if v := counterValue(t, m.FramesTotal, "1"); v != 1 {
		t.Errorf("FramesTotal{device=1} = %f, want 1", v)
	}
}

// counterValue extracts the value from a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", labels, err)
	}
	var metric io_prometheus_client.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

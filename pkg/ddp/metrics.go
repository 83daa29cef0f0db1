package ddp

// Outcome classifies how a datagram was handled.
type Outcome string

const (
	OutcomeData    Outcome = "data"
	OutcomeQuery   Outcome = "query"
	OutcomeInvalid Outcome = "invalid"
	OutcomeReply   Outcome = "reply"
	OutcomeStorage Outcome = "storage"
)

// Metrics receives counters from a Receiver. It is optional: a Receiver
// created without WithMetrics records nothing.
type Metrics interface {
	// RecordPacket is called once per datagram taken off the transport.
	RecordPacket(outcome Outcome, size int)

	// RecordWrite is called for every per-output write attempt. applied is
	// false when the write was dropped for exceeding the capacity limit.
	RecordWrite(deviceID byte, bytes int, applied bool)

	// RecordFrame is called after a frame callback returns.
	RecordFrame(deviceID byte)

	// RecordQuery is called after a reply has been sent.
	RecordQuery(deviceID byte, payloadLen int)
}

type nopMetrics struct{}

func (nopMetrics) RecordPacket(Outcome, int)   {}
func (nopMetrics) RecordWrite(byte, int, bool) {}
func (nopMetrics) RecordFrame(byte)            {}
func (nopMetrics) RecordQuery(byte, int)       {}

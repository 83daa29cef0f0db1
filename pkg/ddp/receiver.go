package ddp

import (
	"errors"
	"net"
)

const (
	// DefaultMaxBufferSize caps every output buffer unless overridden.
	DefaultMaxBufferSize = 4096
	// DefaultReadBufferSize is the size of the receive buffer; longer datagrams are truncated.
	DefaultReadBufferSize = 2048
)

// Option configures a Receiver.
type Option func(*Receiver)

// WithMaxBufferSize sets the capacity limit for every output buffer.
func WithMaxBufferSize(n int) Option {
	return func(r *Receiver) {
		r.maxBufferSize = n
	}
}

// WithStatus sets the payload returned for status queries.
func WithStatus(payload []byte) Option {
	return func(r *Receiver) {
		r.status = payload
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Receiver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithImplicitOutputs controls whether data for an unconfigured id allocates
// a new buffer. It is enabled by default.
func WithImplicitOutputs(allow bool) Option {
	return func(r *Receiver) {
		r.allowImplicit = allow
	}
}

// WithReadBufferSize sets the size of the receive buffer.
func WithReadBufferSize(n int) Option {
	return func(r *Receiver) {
		if n > 0 {
			r.readBufferSize = n
		}
	}
}

// Output describes one configured or implicitly created output.
type Output struct {
	ID          byte
	Size        int
	HasCallback bool
}

// Receiver polls a Transport for DDP packets, writes pixel data into the
// registry and answers queries.
//
// A Receiver holds no locks. All methods, including the frame callbacks it
// invokes from Poll, run on the caller's goroutine; callers sharing one
// Receiver across goroutines must synchronize externally.
type Receiver struct {
	transport Transport
	registry  *Registry
	metrics   Metrics
	status    []byte
	rx        []byte

	maxBufferSize  int
	readBufferSize int
	allowImplicit  bool
}

// NewReceiver creates a Receiver reading from t.
func NewReceiver(t Transport, opts ...Option) *Receiver {
	r := &Receiver{
		transport:      t,
		metrics:        nopMetrics{},
		maxBufferSize:  DefaultMaxBufferSize,
		readBufferSize: DefaultReadBufferSize,
		allowImplicit:  true,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.registry = NewRegistry(r.maxBufferSize)
	r.registry.SetAllowImplicit(r.allowImplicit)
	r.rx = make([]byte, r.readBufferSize)
	return r
}

// ConfigureOutput pre-sizes the buffer for deviceID and registers cb for it.
func (r *Receiver) ConfigureOutput(deviceID byte, size int, cb FrameFunc) {
	r.registry.Configure(deviceID, size, cb)
}

// RemoveOutput drops deviceID's buffer and callback. It reports whether the
// output existed.
func (r *Receiver) RemoveOutput(deviceID byte) bool {
	return r.registry.Remove(deviceID)
}

// MaxBufferSize returns the capacity limit for every output buffer.
func (r *Receiver) MaxBufferSize() int {
	return r.registry.MaxBufferSize()
}

// SetStatus replaces the payload returned for status queries. A nil payload,
// or one longer than MaxStatusLen, makes status queries receive an empty
// acknowledgment.
func (r *Receiver) SetStatus(payload []byte) {
	r.status = payload
}

// Status returns the current status payload.
func (r *Receiver) Status() []byte {
	return r.status
}

// Buffer returns a copy of deviceID's current buffer.
func (r *Receiver) Buffer(deviceID byte) ([]byte, bool) {
	buf, ok := r.registry.Buffer(deviceID)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, true
}

// Outputs lists every output that currently has a buffer, ordered by id.
func (r *Receiver) Outputs() []Output {
	ids := r.registry.IDs()
	outputs := make([]Output, 0, len(ids))
	for _, id := range ids {
		buf, _ := r.registry.Buffer(id)
		outputs = append(outputs, Output{
			ID:          id,
			Size:        len(buf),
			HasCallback: r.registry.Callback(id) != nil,
		})
	}
	return outputs
}

// Poll processes every datagram currently pending on the transport and
// returns how many were handled. It returns as soon as the transport reports
// ErrNoData. Any other transport error stops the drain and is returned along
// with the count handled so far.
func (r *Receiver) Poll() (int, error) {
	processed := 0
	for {
		n, addr, err := r.transport.ReadFrom(r.rx)
		if err != nil {
			if errors.Is(err, ErrNoData) {
				return processed, nil
			}
			return processed, err
		}

		if err := r.Handle(r.rx[:n], addr); err != nil {
			return processed, err
		}
		processed++
	}
}

// Handle processes a single datagram received from addr. Malformed and
// unsupported packets are dropped without error; the only error returned is
// a failure to send a query reply.
func (r *Receiver) Handle(packet []byte, addr net.Addr) error {
	h, ok := DecodeHeader(packet)
	switch {
	case !ok:
		r.metrics.RecordPacket(OutcomeInvalid, len(packet))
		return nil
	case h.Reply():
		r.metrics.RecordPacket(OutcomeReply, len(packet))
		return nil
	case h.Query():
		r.metrics.RecordPacket(OutcomeQuery, len(packet))
		return r.respond(h.DeviceID, addr)
	case h.Storage():
		r.metrics.RecordPacket(OutcomeStorage, len(packet))
		return nil
	}

	r.metrics.RecordPacket(OutcomeData, len(packet))

	end := h.Len + int(h.Length)
	if end > len(packet) {
		end = len(packet)
	}
	data := packet[h.Len:end]

	if h.DeviceID == IDAll {
		// snapshot so outputs configured by a callback miss this packet
		for _, id := range r.registry.IDs() {
			r.deliver(id, h, data)
		}
		return nil
	}

	r.deliver(h.DeviceID, h, data)
	return nil
}

// deliver writes data to one output and fires its callback on PUSH.
func (r *Receiver) deliver(deviceID byte, h Header, data []byte) {
	applied := r.registry.Write(deviceID, h.Offset, data)
	r.metrics.RecordWrite(deviceID, len(data), applied)

	if !h.Push() {
		return
	}
	cb := r.registry.Callback(deviceID)
	if cb == nil {
		return
	}
	buf, ok := r.registry.Buffer(deviceID)
	if !ok {
		return
	}
	cb(deviceID, buf, h.Timecode)
	r.metrics.RecordFrame(deviceID)
}

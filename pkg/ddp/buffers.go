package ddp

import (
	"sort"
)

// FrameFunc is called when a PUSH packet completes a write to an output.
// buf aliases the output's storage and is only valid for the duration of the call;
// copy it to retain the data. timecode is nil unless the packet carried one.
type FrameFunc func(deviceID byte, buf []byte, timecode *uint32)

// Registry owns the per-output byte buffers and their frame callbacks.
// It is not safe for concurrent use.
type Registry struct {
	maxBufferSize int
	allowImplicit bool

	buffers   map[byte][]byte
	callbacks map[byte]FrameFunc
}

// NewRegistry creates a registry whose buffers never exceed maxBufferSize bytes.
func NewRegistry(maxBufferSize int) *Registry {
	return &Registry{
		maxBufferSize: maxBufferSize,
		allowImplicit: true,
		buffers:       make(map[byte][]byte),
		callbacks:     make(map[byte]FrameFunc),
	}
}

// MaxBufferSize returns the capacity limit for every buffer.
func (r *Registry) MaxBufferSize() int {
	return r.maxBufferSize
}

// SetAllowImplicit controls whether a write to an unconfigured id creates a buffer.
func (r *Registry) SetAllowImplicit(allow bool) {
	r.allowImplicit = allow
}

// Configure allocates a zero-filled buffer of exactly size bytes for deviceID,
// replacing any existing buffer. A non-nil cb replaces the registered callback;
// a nil cb keeps whatever was registered before.
func (r *Registry) Configure(deviceID byte, size int, cb FrameFunc) {
	if size < 0 {
		size = 0
	}
	r.buffers[deviceID] = make([]byte, size)
	if cb != nil {
		r.callbacks[deviceID] = cb
	}
}

// Write copies data into deviceID's buffer at offset, creating or growing the
// buffer as needed. Writes that would take the buffer past the capacity limit
// are dropped whole. It reports whether the write was applied.
func (r *Registry) Write(deviceID byte, offset uint32, data []byte) bool {
	// 64-bit so offset+len cannot wrap
	end := int64(offset) + int64(len(data))

	buf, exists := r.buffers[deviceID]
	if !exists {
		if !r.allowImplicit || end > int64(r.maxBufferSize) {
			return false
		}
		buf = make([]byte, end)
		r.buffers[deviceID] = buf
	}

	if end > int64(len(buf)) {
		if end > int64(r.maxBufferSize) {
			return false
		}
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
		r.buffers[deviceID] = buf
	}

	copy(buf[offset:end], data)
	return true
}

// Buffer returns the current buffer for deviceID without copying.
func (r *Registry) Buffer(deviceID byte) ([]byte, bool) {
	buf, ok := r.buffers[deviceID]
	return buf, ok
}

// Callback returns the frame callback registered for deviceID, or nil.
func (r *Registry) Callback(deviceID byte) FrameFunc {
	return r.callbacks[deviceID]
}

// IDs returns a sorted snapshot of every id that currently has a buffer.
func (r *Registry) IDs() []byte {
	ids := make([]byte, 0, len(r.buffers))
	for id := range r.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Remove drops deviceID's buffer and callback. It reports whether a buffer existed.
func (r *Registry) Remove(deviceID byte) bool {
	_, ok := r.buffers[deviceID]
	delete(r.buffers, deviceID)
	delete(r.callbacks, deviceID)
	return ok
}

// Package receiver hosts the DDP receiver: it owns the poll loop goroutine,
// serializes access to the core receiver, and fans pushed frames out to
// pubsub subscribers and registered frame handlers.
package receiver

import (
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/bbernstein/lacylights-ddp/internal/services/grid"
	"github.com/bbernstein/lacylights-ddp/internal/services/pubsub"
	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

// ErrStatusTooLarge is returned when a status payload cannot fit in one reply.
var ErrStatusTooLarge = errors.New("receiver: status payload too large")

// Config holds receiver service configuration.
type Config struct {
	PixelCount   int
	PollInterval time.Duration
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		PixelCount:   30,
		PollInterval: 2 * time.Millisecond,
	}
}

// Frame is published on pubsub.TopicFrame each time an output receives PUSH.
type Frame struct {
	DeviceID byte     `json:"id"`
	Data     []byte   `json:"-"`
	Timecode *uint32  `json:"timecode,omitempty"`
	Colors   []string `json:"colors"`
}

// FrameHandler is called from the poll loop for every pushed frame.
// It must not call back into the Service.
type FrameHandler func(Frame)

// Service manages a ddp.Receiver and its poll loop.
type Service struct {
	mu sync.Mutex

	rx       *ddp.Receiver
	pubsub   *pubsub.PubSub
	handlers []FrameHandler

	pixelCount   int
	pollInterval time.Duration

	frames  uint64
	packets uint64

	stopChan chan struct{}
	doneChan chan struct{}
	running  bool
}

// NewService creates a receiver service reading from t. ps may be nil.
func NewService(cfg Config, t ddp.Transport, ps *pubsub.PubSub, opts ...ddp.Option) *Service {
	pixelCount := cfg.PixelCount
	if pixelCount <= 0 {
		pixelCount = DefaultConfig().PixelCount
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultConfig().PollInterval
	}

	return &Service{
		rx:           ddp.NewReceiver(t, opts...),
		pubsub:       ps,
		pixelCount:   pixelCount,
		pollInterval: interval,
	}
}

// PixelCount returns the number of pixels rendered per frame.
func (s *Service) PixelCount() int {
	return s.pixelCount
}

// OnFrame registers h to be called for every pushed frame.
func (s *Service) OnFrame(h FrameHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// ConfigureOutput pre-sizes the buffer for deviceID and publishes its frames.
func (s *Service) ConfigureOutput(deviceID byte, size int) {
	s.mu.Lock()
	s.rx.ConfigureOutput(deviceID, size, s.handleFrame)
	outputs := s.rx.Outputs()
	s.mu.Unlock()

	if s.pubsub != nil {
		s.pubsub.PublishAll(pubsub.TopicOutputs, outputs)
	}
}

// RemoveOutput drops deviceID's buffer and stops publishing its frames. It
// reports whether the output existed.
func (s *Service) RemoveOutput(deviceID byte) bool {
	s.mu.Lock()
	removed := s.rx.RemoveOutput(deviceID)
	outputs := s.rx.Outputs()
	s.mu.Unlock()

	if removed && s.pubsub != nil {
		s.pubsub.PublishAll(pubsub.TopicOutputs, outputs)
	}
	return removed
}

// MaxBufferSize returns the capacity limit for every output buffer.
func (s *Service) MaxBufferSize() int {
	return s.rx.MaxBufferSize()
}

// SetStatus replaces the payload returned for status queries.
func (s *Service) SetStatus(payload []byte) error {
	if len(payload) > ddp.MaxStatusLen {
		return ErrStatusTooLarge
	}
	var stored []byte
	if payload != nil {
		stored = make([]byte, len(payload))
		copy(stored, payload)
	}

	s.mu.Lock()
	s.rx.SetStatus(stored)
	s.mu.Unlock()

	if s.pubsub != nil {
		s.pubsub.PublishAll(pubsub.TopicStatus, stored)
	}
	return nil
}

// Status returns a copy of the current status payload.
func (s *Service) Status() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.rx.Status()
	if status == nil {
		return nil
	}
	out := make([]byte, len(status))
	copy(out, status)
	return out
}

// Snapshot returns a copy of deviceID's buffer.
func (s *Service) Snapshot(deviceID byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.Buffer(deviceID)
}

// Colors renders deviceID's buffer for the web grid.
func (s *Service) Colors(deviceID byte) []string {
	buf, _ := s.Snapshot(deviceID)
	return grid.Colors(buf, s.pixelCount)
}

// Outputs lists the outputs that currently have a buffer.
func (s *Service) Outputs() []ddp.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.Outputs()
}

// Stats returns the number of datagrams handled and frames pushed so far.
func (s *Service) Stats() (packets, frames uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.frames
}

// PollOnce drains every pending datagram. s.mu is held for the whole drain,
// including the transport's final read window (1ms for ddp.UDPTransport) that
// ends in ddp.ErrNoData, so other Service calls wait at most that long.
func (s *Service) PollOnce() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.rx.Poll()
	s.packets += uint64(n)
	return n, err
}

// Start launches the poll loop.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	log.Printf("📥 DDP receiver polling every %v (%d pixels)", s.pollInterval, s.pixelCount)
	go s.pollLoop(s.stopChan, s.doneChan)
}

// Stop ends the poll loop and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()

	<-done
	log.Printf("📥 DDP receiver stopped")
}

// pollLoop polls the transport on every tick until stopped or the transport closes.
func (s *Service) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.PollOnce(); err != nil {
				if errors.Is(err, ddp.ErrTransportClosed) {
					log.Printf("📥 DDP transport closed, poll loop exiting")
					return
				}
				log.Printf("⚠️ DDP poll error: %v", err)
			}
		}
	}
}

// handleFrame runs inside Poll with s.mu held.
func (s *Service) handleFrame(deviceID byte, buf []byte, timecode *uint32) {
	s.frames++

	data := make([]byte, len(buf))
	copy(data, buf)
	frame := Frame{
		DeviceID: deviceID,
		Data:     data,
		Timecode: timecode,
		Colors:   grid.Colors(data, s.pixelCount),
	}

	if s.pubsub != nil {
		s.pubsub.Publish(pubsub.TopicFrame, strconv.Itoa(int(deviceID)), frame)
	}
	for _, h := range s.handlers {
		h(frame)
	}
}

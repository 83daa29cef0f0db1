// Package bridge re-broadcasts pushed DDP frames as Art-Net DMX universes.
package bridge

import (
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bbernstein/lacylights-ddp/pkg/artnet"
	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

// Config holds Art-Net bridge configuration.
type Config struct {
	Enabled       bool
	BroadcastAddr string
	Port          int
	DeviceID      byte
	StartUniverse uint16
	RefreshRateHz int
	IdleRateHz    int
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		BroadcastAddr: "255.255.255.255",
		Port:          artnet.DefaultPort,
		DeviceID:      ddp.IDDisplay,
		StartUniverse: 0,
		RefreshRateHz: 44,
		IdleRateHz:    1,
	}
}

// Service forwards the latest frame of one DDP output to Art-Net.
type Service struct {
	mu sync.Mutex

	channels []byte
	// highest number of universes transmitted so far
	sentCount int
	dirty    bool
	lastSend time.Time

	enabled       bool
	broadcastAddr string
	port          int
	deviceID      byte
	startUniverse uint16
	refreshRateHz int
	idleInterval  time.Duration

	// Art-Net sequence number (increments for each packet, skips 0)
	sequence byte

	conn net.Conn

	stopChan chan struct{}
	running  bool
}

// NewService creates a new bridge service.
func NewService(cfg Config) *Service {
	refreshRate := cfg.RefreshRateHz
	if refreshRate <= 0 {
		refreshRate = DefaultConfig().RefreshRateHz
	}
	idleRate := cfg.IdleRateHz
	if idleRate <= 0 {
		idleRate = DefaultConfig().IdleRateHz
	}
	port := cfg.Port
	if port <= 0 {
		port = artnet.DefaultPort
	}

	return &Service{
		enabled:       cfg.Enabled,
		broadcastAddr: cfg.BroadcastAddr,
		port:          port,
		deviceID:      cfg.DeviceID,
		startUniverse: cfg.StartUniverse,
		refreshRateHz: refreshRate,
		idleInterval:  time.Second / time.Duration(idleRate),
	}
}

// Initialize opens the Art-Net socket and starts the transmission loop.
// A disabled bridge accepts frames but never transmits.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if !s.enabled {
		log.Printf("🌉 Art-Net bridge disabled")
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(s.broadcastAddr, strconv.Itoa(s.port)))
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return err
	}
	s.conn = conn

	log.Printf("🌉 Art-Net bridge forwarding DDP device %d to %s from universe %d at %dHz",
		s.deviceID, addr, s.startUniverse, s.refreshRateHz)

	s.running = true
	s.stopChan = make(chan struct{})
	go s.transmitLoop(s.stopChan)
	return nil
}

// HandleFrame stores the latest frame for deviceID. Frames for other devices
// are ignored.
func (s *Service) HandleFrame(deviceID byte, data []byte) {
	if deviceID != s.deviceID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cap(s.channels) < len(data) {
		s.channels = make([]byte, len(data))
	}
	s.channels = s.channels[:len(data)]
	copy(s.channels, data)
	s.dirty = true
}

// Universes returns how many universes the current frame spans.
func (s *Service) Universes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(artnet.SplitUniverses(s.channels, artnet.PixelChannels))
}

// IsEnabled returns whether Art-Net output is enabled.
func (s *Service) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// transmitLoop sends dirty frames at the refresh rate and keep-alives at the idle rate.
func (s *Service) transmitLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(s.refreshRateHz))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.dirty || time.Since(s.lastSend) >= s.idleInterval {
				s.transmit()
			}
			s.mu.Unlock()
		}
	}
}

// transmit sends every universe of the current frame. Caller holds s.mu.
func (s *Service) transmit() {
	if s.conn == nil {
		return
	}

	universes := artnet.SplitUniverses(s.channels, artnet.PixelChannels)
	for i, channels := range universes {
		s.send(s.startUniverse+uint16(i), channels)
	}
	if len(universes) > s.sentCount {
		s.sentCount = len(universes)
	}
	s.dirty = false
	s.lastSend = time.Now()
}

func (s *Service) send(universe uint16, channels []byte) {
	s.sequence++
	if s.sequence == 0 {
		s.sequence = 1
	}
	packet := artnet.BuildDMXPacket(universe, s.sequence, channels)
	if _, err := s.conn.Write(packet); err != nil {
		log.Printf("Art-Net send error for universe %d: %v", universe, err)
	}
}

// Stop sends a blackout for every universe that was transmitted and closes the socket.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false

	if s.conn != nil {
		blackout := make([]byte, artnet.PixelChannels)
		for i := 0; i < s.sentCount; i++ {
			s.send(s.startUniverse+uint16(i), blackout)
		}
		_ = s.conn.Close()
		s.conn = nil
	}

	log.Printf("🌉 Art-Net bridge stopped")
}

package ddp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// Transport is the datagram source and sink a Receiver polls.
//
// ReadFrom must not wait for data: when nothing is pending it returns ErrNoData.
// Any other error is treated as fatal by Receiver.Poll.
type Transport interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
}

// DefaultReadWindow is how long UDPTransport.ReadFrom waits before reporting
// ErrNoData. Go has no non-blocking UDP read, so an idle Poll lasts one window.
const DefaultReadWindow = time.Millisecond

// UDPTransport implements Transport over a bound UDP socket.
type UDPTransport struct {
	conn *net.UDPConn

	mu         sync.RWMutex
	readWindow time.Duration
	closed     bool
}

// ListenUDP binds a UDP socket on addr (e.g. ":4048").
func ListenUDP(addr string) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen UDP: %w", err)
	}
	return NewUDPTransport(conn), nil
}

// NewUDPTransport wraps an existing UDP connection.
func NewUDPTransport(conn *net.UDPConn) *UDPTransport {
	return &UDPTransport{
		conn:       conn,
		readWindow: DefaultReadWindow,
	}
}

// SetReadWindow sets how long a read may wait for a datagram that is about
// to arrive. Keep it small: the poll loop stalls for this long when idle.
func (t *UDPTransport) SetReadWindow(d time.Duration) {
	t.mu.Lock()
	t.readWindow = d
	t.mu.Unlock()
}

// ReadFrom reads one datagram, returning ErrNoData when none is pending.
func (t *UDPTransport) ReadFrom(p []byte) (int, net.Addr, error) {
	t.mu.RLock()
	window := t.readWindow
	closed := t.closed
	t.mu.RUnlock()

	if closed {
		return 0, nil, ErrTransportClosed
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return 0, nil, fmt.Errorf("set read deadline: %w", err)
	}

	n, addr, err := t.conn.ReadFromUDP(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, nil, ErrNoData
		}
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil, ErrNoData
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, nil, ErrTransportClosed
		}
		return 0, nil, fmt.Errorf("read UDP: %w", err)
	}
	return n, addr, nil
}

// WriteTo sends one datagram to addr.
func (t *UDPTransport) WriteTo(p []byte, addr net.Addr) (int, error) {
	n, err := t.conn.WriteTo(p, addr)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return n, ErrTransportClosed
		}
		return n, fmt.Errorf("write UDP: %w", err)
	}
	return n, nil
}

// LocalAddr returns the bound address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close closes the socket. Closing twice is a no-op.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

package ddp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// DefaultQueryTimeout bounds Query when the context has no deadline.
const DefaultQueryTimeout = 2 * time.Second

// Sender transmits pixel frames to a single DDP device.
type Sender struct {
	conn net.Conn
}

// Dial connects a Sender to addr (host:port).
func Dial(addr string) (*Sender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Sender{conn: conn}, nil
}

// SendFrame sends data to deviceID, split into MaxDataLen chunks at
// increasing offsets. Only the last chunk carries PUSH.
func (s *Sender) SendFrame(deviceID byte, data []byte) error {
	for _, packet := range BuildFrame(deviceID, data) {
		if _, err := s.conn.Write(packet); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
	}
	return nil
}

// Close closes the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// BuildFrame returns the datagrams that carry data to deviceID. An empty
// frame still produces one PUSH packet.
func BuildFrame(deviceID byte, data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{EncodeHeader(FlagVersion1|FlagPush, deviceID, 0, 0)}
	}

	var packets [][]byte
	for offset := 0; offset < len(data); offset += MaxDataLen {
		end := offset + MaxDataLen
		flags := FlagVersion1
		if end >= len(data) {
			end = len(data)
			flags |= FlagPush
		}
		chunk := data[offset:end]

		packet := make([]byte, 0, HeaderLen+len(chunk))
		packet = append(packet, EncodeHeader(flags, deviceID, uint32(offset), uint16(len(chunk)))...)
		packet = append(packet, chunk...)
		packets = append(packets, packet)
	}
	return packets
}

// Query sends a QUERY for deviceID to addr and returns the reply payload,
// which is empty for an acknowledgment without data.
func Query(ctx context.Context, addr string, deviceID byte) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultQueryTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(EncodeHeader(FlagVersion1|FlagQuery, deviceID, 0, 0)); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}

	buf := make([]byte, 65535)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrNoReply
			}
			return nil, fmt.Errorf("read reply: %w", err)
		}

		h, ok := DecodeHeader(buf[:n])
		if !ok || !h.Reply() || h.DeviceID != deviceID {
			continue
		}
		end := h.Len + int(h.Length)
		if end > n {
			end = n
		}
		payload := make([]byte, end-h.Len)
		copy(payload, buf[h.Len:end])
		return payload, nil
	}
}

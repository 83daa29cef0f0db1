// Package ddp implements the receiving side of the Distributed Display Protocol:
// header encoding and decoding, per-output pixel buffers, and the query/reply
// exchange used for device discovery.
package ddp

import (
	"encoding/binary"
)

const (
	// DefaultPort is the standard DDP UDP port.
	DefaultPort = 4048

	// HeaderLen is the size of a header without a timecode.
	HeaderLen = 10
	// HeaderLenTime is the size of a header carrying a timecode.
	HeaderLenTime = 14

	// MaxDataLen is the payload size senders conventionally use per packet (480 RGB pixels).
	MaxDataLen = 480 * 3
)

// Bits of the flags1 byte.
const (
	FlagVersionMask byte = 0xC0
	FlagVersion1    byte = 0x40
	FlagPush        byte = 0x01
	FlagQuery       byte = 0x02
	FlagReply       byte = 0x04
	FlagStorage     byte = 0x08
	FlagTime        byte = 0x10
)

// Reserved device ids.
const (
	IDDisplay byte = 1
	IDConfig  byte = 250
	IDStatus  byte = 251
	IDAll     byte = 255
)

// Header is a decoded DDP packet header.
type Header struct {
	Flags    byte
	DeviceID byte
	Offset   uint32
	Length   uint16

	// Timecode is set only when the TIME flag is present.
	Timecode *uint32

	// Len is the header size in bytes, i.e. where the payload begins.
	Len int
}

// Version returns the two version bits of flags1.
func (h Header) Version() byte { return (h.Flags & FlagVersionMask) >> 6 }

// Push reports whether the packet completes a displayable frame.
func (h Header) Push() bool { return h.Flags&FlagPush != 0 }

// Query reports whether the packet is a status/config request.
func (h Header) Query() bool { return h.Flags&FlagQuery != 0 }

// Reply reports whether the packet is a reply to a query.
func (h Header) Reply() bool { return h.Flags&FlagReply != 0 }

// Storage reports whether the packet targets persistent configuration.
func (h Header) Storage() bool { return h.Flags&FlagStorage != 0 }

// HasTime reports whether a timecode follows the base header.
func (h Header) HasTime() bool { return h.Flags&FlagTime != 0 }

// EncodeHeader builds a 10-byte header. Timecodes are never emitted.
func EncodeHeader(flags1, deviceID byte, offset uint32, length uint16) []byte {
	header := make([]byte, HeaderLen)

	header[0] = flags1                               // Flags (1 byte)
	header[1] = 0                                    // Reserved / sequence (1 byte)
	header[2] = 0                                    // Reserved / data type (1 byte)
	header[3] = deviceID                             // Destination id (1 byte)
	binary.BigEndian.PutUint32(header[4:8], offset)  // Data offset (4 bytes)
	binary.BigEndian.PutUint16(header[8:10], length) // Data length (2 bytes)

	return header
}

// DecodeHeader parses a header from the start of packet.
// It returns false for packets that are too short, carry a version other
// than 1, or set the TIME flag without room for the timecode.
func DecodeHeader(packet []byte) (Header, bool) {
	if len(packet) < HeaderLen {
		return Header{}, false
	}

	h := Header{
		Flags:    packet[0],
		DeviceID: packet[3],
		Offset:   binary.BigEndian.Uint32(packet[4:8]),
		Length:   binary.BigEndian.Uint16(packet[8:10]),
		Len:      HeaderLen,
	}
	if h.Version() != 1 {
		return Header{}, false
	}

	if h.HasTime() {
		if len(packet) < HeaderLenTime {
			return Header{}, false
		}
		tc := binary.BigEndian.Uint32(packet[10:14])
		h.Timecode = &tc
		h.Len = HeaderLenTime
	}

	return h, true
}

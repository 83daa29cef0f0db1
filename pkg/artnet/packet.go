// Package artnet builds Art-Net ArtDmx packets for re-broadcasting pixel buffers.
package artnet

import (
	"encoding/binary"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// HeaderSize is the size of the ArtDmx header preceding the channel data.
	HeaderSize = 18
	// MaxChannels is the number of DMX channels per universe.
	MaxChannels = 512
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
	// PixelChannels is the largest channel count holding whole RGB pixels (170 pixels).
	PixelChannels = 510
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// BuildDMXPacket creates an ArtDmx packet for a 0-based port address.
// The channel data is padded to an even length between 2 and 512 bytes as the
// Art-Net specification requires; anything past 512 bytes is ignored.
func BuildDMXPacket(universe uint16, sequence byte, channels []byte) []byte {
	length := len(channels)
	if length > MaxChannels {
		length = MaxChannels
	}
	if length < 2 {
		length = 2
	}
	if length%2 != 0 {
		length++
	}

	packet := make([]byte, HeaderSize+length)

	copy(packet[0:8], ArtNetID)                                   // ID (8 bytes): "Art-Net\0"
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)        // OpCode (2 bytes)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)    // Protocol version (2 bytes)
	packet[12] = sequence                                         // Sequence (1 byte): 0 disables reordering
	packet[13] = 0                                                // Physical input port (1 byte)
	binary.LittleEndian.PutUint16(packet[14:16], universe&0x7FFF) // Port address (15 bits)
	binary.BigEndian.PutUint16(packet[16:18], uint16(length))     // Data length (2 bytes)

	copy(packet[HeaderSize:], channels)
	return packet
}

// SplitUniverses slices buf into consecutive universes of at most perUniverse
// channels. The returned slices alias buf.
func SplitUniverses(buf []byte, perUniverse int) [][]byte {
	if perUniverse <= 0 || perUniverse > MaxChannels {
		perUniverse = MaxChannels
	}

	var universes [][]byte
	for start := 0; start < len(buf); start += perUniverse {
		end := start + perUniverse
		if end > len(buf) {
			end = len(buf)
		}
		universes = append(universes, buf[start:end])
	}
	return universes
}

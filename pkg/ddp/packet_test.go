package ddp

import (
	"encoding/binary"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		flags    byte
		deviceID byte
		offset   uint32
		length   uint16
	}{
		{
			name:     "Display push",
			flags:    FlagVersion1 | FlagPush,
			deviceID: IDDisplay,
			offset:   0,
			length:   90,
		},
		{
			name:     "Large offset",
			flags:    FlagVersion1,
			deviceID: 7,
			offset:   0xDEADBEEF,
			length:   MaxDataLen,
		},
		{
			name:     "Status reply",
			flags:    FlagVersion1 | FlagReply | FlagPush,
			deviceID: IDStatus,
			offset:   0,
			length:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := EncodeHeader(tt.flags, tt.deviceID, tt.offset, tt.length)

			if len(header) != HeaderLen {
				t.Fatalf("EncodeHeader() size = %d, want %d", len(header), HeaderLen)
			}
			if header[0] != tt.flags {
				t.Errorf("EncodeHeader() flags = 0x%02x, want 0x%02x", header[0], tt.flags)
			}
			if header[1] != 0 || header[2] != 0 {
				t.Errorf("EncodeHeader() reserved bytes = %d,%d, want 0,0", header[1], header[2])
			}
			if header[3] != tt.deviceID {
				t.Errorf("EncodeHeader() device id = %d, want %d", header[3], tt.deviceID)
			}
			if got := binary.BigEndian.Uint32(header[4:8]); got != tt.offset {
				t.Errorf("EncodeHeader() offset = 0x%08x, want 0x%08x", got, tt.offset)
			}
			if got := binary.BigEndian.Uint16(header[8:10]); got != tt.length {
				t.Errorf("EncodeHeader() length = %d, want %d", got, tt.length)
			}
		})
	}
}

func TestEncodeHeader_ByteLayout(t *testing.T) {
	header := EncodeHeader(0x41, 0x01, 0x01020304, 0x0506)
	want := []byte{0x41, 0, 0, 0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	for i := range want {
		if header[i] != want[i] {
			t.Errorf("byte %d = 0x%02x, want 0x%02x", i, header[i], want[i])
		}
	}
}

func TestDecodeHeader_RoundTrip(t *testing.T) {
	offsets := []uint32{0, 1, 255, 256, 65535, 1 << 24, 0xFFFFFFFF}
	lengths := []uint16{0, 1, 3, MaxDataLen, 0xFFFF}

	// every flag combination with version 1 and no timecode
	for low := byte(0); low < 0x40; low++ {
		if low&FlagTime != 0 {
			continue
		}
		flags := FlagVersion1 | low

		for id := 0; id <= 255; id++ {
			for _, offset := range offsets {
				for _, length := range lengths {
					h, ok := DecodeHeader(EncodeHeader(flags, byte(id), offset, length))
					if !ok {
						t.Fatalf("DecodeHeader(flags=0x%02x id=%d) reported invalid", flags, id)
					}
					if h.Flags != flags || h.DeviceID != byte(id) || h.Offset != offset || h.Length != length {
						t.Fatalf("round trip mismatch: got %+v, want flags=0x%02x id=%d offset=%d length=%d",
							h, flags, id, offset, length)
					}
					if h.Len != HeaderLen {
						t.Fatalf("Len = %d, want %d", h.Len, HeaderLen)
					}
					if h.Timecode != nil {
						t.Fatal("Timecode should be nil without TIME flag")
					}
				}
			}
		}
	}
}

func TestDecodeHeader_BadVersion(t *testing.T) {
	for _, version := range []byte{0x00, 0x80, 0xC0} {
		for low := 0; low < 0x40; low++ {
			packet := make([]byte, 64)
			packet[0] = version | byte(low)
			packet[3] = IDDisplay

			if _, ok := DecodeHeader(packet); ok {
				t.Errorf("DecodeHeader(flags=0x%02x) should be invalid", packet[0])
			}
		}
	}
}

func TestDecodeHeader_TooShort(t *testing.T) {
	full := EncodeHeader(FlagVersion1|FlagPush, IDDisplay, 0, 3)
	for n := 0; n < HeaderLen; n++ {
		if _, ok := DecodeHeader(full[:n]); ok {
			t.Errorf("DecodeHeader(%d bytes) should be invalid", n)
		}
	}
}

func TestDecodeHeader_Timecode(t *testing.T) {
	packet := EncodeHeader(FlagVersion1|FlagPush|FlagTime, IDDisplay, 12, 3)
	packet = append(packet, 0x00, 0x01, 0x02, 0x03, 9, 8, 7)

	h, ok := DecodeHeader(packet)
	if !ok {
		t.Fatal("DecodeHeader() with timecode reported invalid")
	}
	if h.Len != HeaderLenTime {
		t.Errorf("Len = %d, want %d", h.Len, HeaderLenTime)
	}
	if h.Timecode == nil {
		t.Fatal("Timecode should be set")
	}
	if *h.Timecode != 0x00010203 {
		t.Errorf("Timecode = 0x%08x, want 0x00010203", *h.Timecode)
	}
	if !h.HasTime() || !h.Push() {
		t.Error("expected TIME and PUSH flags")
	}
}

func TestDecodeHeader_TruncatedTimecode(t *testing.T) {
	packet := EncodeHeader(FlagVersion1|FlagTime, IDDisplay, 0, 0)
	for extra := 0; extra < 4; extra++ {
		if _, ok := DecodeHeader(packet); ok {
			t.Errorf("DecodeHeader(%d bytes, TIME set) should be invalid", len(packet))
		}
		packet = append(packet, 0)
	}
	if _, ok := DecodeHeader(packet); !ok {
		t.Errorf("DecodeHeader(%d bytes, TIME set) should be valid", len(packet))
	}
}

func TestHeader_FlagPredicates(t *testing.T) {
	h := Header{Flags: FlagVersion1 | FlagQuery | FlagStorage}

	if h.Version() != 1 {
		t.Errorf("Version() = %d, want 1", h.Version())
	}
	if !h.Query() || !h.Storage() {
		t.Error("expected Query and Storage")
	}
	if h.Push() || h.Reply() || h.HasTime() {
		t.Error("unexpected Push, Reply or HasTime")
	}
}

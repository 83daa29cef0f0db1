package ddp

import (
	"encoding/json"
	"net"
)

// replyFlags are set on every reply this package sends.
const replyFlags = FlagVersion1 | FlagReply | FlagPush

// MaxStatusLen is the largest status payload that fits in one IPv4 UDP datagram.
const MaxStatusLen = 65507 - HeaderLen

// Status is the conventional JSON document returned for status queries.
type Status struct {
	Manufacturer string `json:"man,omitempty"`
	Model        string `json:"mod,omitempty"`
	Version      string `json:"ver,omitempty"`
	MAC          string `json:"mac,omitempty"`
	Push         bool   `json:"push,omitempty"`
	NTP          bool   `json:"ntp,omitempty"`
}

// MarshalStatus encodes s as {"status":{...}}.
func MarshalStatus(s Status) ([]byte, error) {
	return json.Marshal(struct {
		Status Status `json:"status"`
	}{s})
}

// UnmarshalStatus decodes a {"status":{...}} document.
func UnmarshalStatus(payload []byte) (Status, error) {
	var doc struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Status{}, err
	}
	return doc.Status, nil
}

// replyPayload returns the bytes a reply to deviceID carries, or nil for an
// empty acknowledgment. A status longer than MaxStatusLen cannot be described
// by the header length field and is not sent.
func replyPayload(deviceID byte, status []byte) []byte {
	if deviceID != IDStatus || status == nil || len(status) > MaxStatusLen {
		return nil
	}
	return status
}

// BuildReply returns the reply datagram for a query addressed to deviceID.
// Only status queries with a configured payload of at most MaxStatusLen bytes
// carry data; everything else gets an empty acknowledgment.
func BuildReply(deviceID byte, status []byte) []byte {
	status = replyPayload(deviceID, status)
	if status == nil {
		return EncodeHeader(replyFlags, deviceID, 0, 0)
	}

	packet := make([]byte, 0, HeaderLen+len(status))
	packet = append(packet, EncodeHeader(replyFlags, deviceID, 0, uint16(len(status)))...)
	packet = append(packet, status...)
	return packet
}

// respond sends the reply for a query received from addr.
func (r *Receiver) respond(deviceID byte, addr net.Addr) error {
	reply := BuildReply(deviceID, r.status)
	if _, err := r.transport.WriteTo(reply, addr); err != nil {
		return err
	}
	r.metrics.RecordQuery(deviceID, len(replyPayload(deviceID, r.status)))
	return nil
}

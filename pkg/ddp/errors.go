package ddp

import "errors"

var (
	// ErrNoData is returned by a Transport when no datagram is pending.
	ErrNoData = errors.New("ddp: no data pending")
	// ErrTransportClosed is returned when reading from or writing to a closed transport.
	ErrTransportClosed = errors.New("ddp: transport closed")
	// ErrNoReply is returned by Query when no reply arrives before the deadline.
	ErrNoReply = errors.New("ddp: no reply")
)

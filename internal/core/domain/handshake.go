package domain

import (
	"net"
	"time"
)

// HandshakeMessage is the position of an EAPOL-Key frame in the 4-way handshake.
type HandshakeMessage int

const (
	Unclassified HandshakeMessage = iota
	Message1
	Message2
	Message3
	Message4
)

func (m HandshakeMessage) String() string {
	switch m {
	case Message1:
		return "M1"
	case Message2:
		return "M2"
	case Message3:
		return "M3"
	case Message4:
		return "M4"
	}
	return "unclassified"
}

// HandshakeFrame is a classified EAPOL-Key frame ready for the append-only writer.
type HandshakeFrame struct {
	BSSID     net.HardwareAddr
	Station   net.HardwareAddr
	Message   HandshakeMessage
	Channel   int
	Frame     []byte
	Timestamp time.Time
}

package ports

// RxMeta is the per-frame metadata supplied by the radio driver.
type RxMeta struct {
	RSSI    int
	Channel int
}

// ReceiveFunc is invoked by the radio driver for every received frame, from the
// driver's own goroutine. It must not block and must not retain frame.
type ReceiveFunc func(frame []byte, meta RxMeta)

// Radio abstracts the single shared transceiver. Frames are raw 802.11 frames
// without radiotap header or FCS.
type Radio interface {
	SetChannel(channel int) error
	Transmit(frame []byte) error
	// SetReceiver installs fn as the receive callback; nil disables reception.
	SetReceiver(fn ReceiveFunc)
}

package wire

import "io"

// Wire is a synchronous framer over a byte stream. It owns one receive and one
// transmit buffer and is not safe for concurrent use.
type Wire struct {
	rw     io.ReadWriter
	header [HeaderSize]byte
	rx     []byte
	tx     []byte
	broken bool
}

// NewWire creates a framer over rw
func NewWire(rw io.ReadWriter) *Wire {
	return &Wire{
		rw: rw,
		rx: make([]byte, MaxFrameSize),
		tx: make([]byte, 0, HeaderSize+MaxFrameSize),
	}
}

// ReceiveMessage reads one frame and decodes it into msg.
// It never reads more than MaxFrameSize payload bytes.
func (w *Wire) ReceiveMessage(msg Message) error {
	if w.broken {
		return ErrBroken
	}

	payload, err := readFrame(w.rw, w.header[:], w.rx)
	if err != nil {
		return w.fail(err)
	}

	if err := msg.Unmarshal(payload); err != nil {
		return w.fail(&DeserializeError{Err: err})
	}
	return nil
}

// SendMessage encodes msg and writes it as one frame. Messages encoding to more
// than MaxFrameSize bytes are rejected before anything is written.
func (w *Wire) SendMessage(msg Message) error {
	if w.broken {
		return ErrBroken
	}

	frame, err := encodeFrame(msg, w.tx)
	w.tx = frame[:0]
	if err != nil {
		return w.fail(err)
	}

	if err := writeFrame(w.rw, frame); err != nil {
		return w.fail(err)
	}
	return nil
}

// Broken reports whether an earlier error made the framer unusable
func (w *Wire) Broken() bool {
	return w.broken
}

func (w *Wire) fail(err error) error {
	countError(err)
	if poisons(err) {
		w.broken = true
		Logger.Debugf("framer broken: %v", err)
	}
	return err
}

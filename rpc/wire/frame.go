package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("wire")

const (
	// HeaderSize is the size of the length prefix
	HeaderSize = 4

	// MaxFrameSize is the largest payload a frame may carry
	MaxFrameSize = 4096
)

// Message is implemented by every type the framer can carry
type Message interface {
	// MarshalAppend appends the encoded message to b and returns the extended slice
	MarshalAppend(b []byte) ([]byte, error)
	// Unmarshal replaces the message with the decoding of b.
	// b is only valid during the call.
	Unmarshal(b []byte) error
}

var (
	framesReceived = metrics.NewCounter("vsh_wire_frames_received_total")
	framesSent     = metrics.NewCounter("vsh_wire_frames_sent_total")
	bytesReceived  = metrics.NewCounter("vsh_wire_bytes_received_total")
	bytesSent      = metrics.NewCounter("vsh_wire_bytes_sent_total")
)

// countError increments the error counter for the kind of err
func countError(err error) {
	var kind string
	switch {
	case IsProtocolViolation(err):
		kind = "protocol"
	case errors.Is(err, ErrMessageTooBig):
		kind = "too_big"
	case IsSerialization(err):
		kind = "serialization"
	case errors.Is(err, io.EOF):
		kind = "eof"
	default:
		kind = "transport"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`vsh_wire_errors_total{kind=%q}`, kind)).Inc()
}

// readFrame reads one frame from r into buf, which must hold MaxFrameSize bytes.
// It returns the payload, a slice of buf.
func readFrame(r io.Reader, header []byte, buf []byte) ([]byte, error) {
	// Read header, EOF here means the peer closed between frames
	if _, err := io.ReadFull(r, header[:HeaderSize]); err != nil {
		return nil, &ReceiveError{Err: err}
	}

	size := binary.LittleEndian.Uint32(header[:HeaderSize])
	if size > MaxFrameSize {
		return nil, &ReceiveError{Err: fmt.Errorf("%w: header announces %d bytes, limit is %d", ErrInvalidFrameSize, size, MaxFrameSize)}
	}

	// Read payload
	if _, err := io.ReadFull(r, buf[:size]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ReceiveError{Err: err}
	}

	framesReceived.Inc()
	bytesReceived.Add(HeaderSize + int(size))

	return buf[:size], nil
}

// encodeFrame serializes msg into tx behind a header placeholder and fills in the
// header. Nothing is written if the message fails to encode or is too big.
// The returned slice always shares the backing array of tx: on error it is
// tx[:0], and a buffer grown by the encoder is never handed back.
func encodeFrame(msg Message, tx []byte) ([]byte, error) {
	orig := tx[:0]

	frame, err := msg.MarshalAppend(append(orig, 0, 0, 0, 0))
	if err != nil {
		return orig, &SerializeError{Err: err}
	}

	size := len(frame) - HeaderSize
	if size > MaxFrameSize {
		return orig, &MessageTooBigError{Size: size}
	}

	binary.LittleEndian.PutUint32(frame[:HeaderSize], uint32(size))
	if cap(frame) != cap(orig) {
		// the encoder reallocated although the frame fits, keep our buffer
		frame = append(orig, frame...)
	}
	return frame, nil
}

// writeFrame writes an encoded frame. Header and payload share one buffer,
// so they go out in a single write.
func writeFrame(w io.Writer, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return &SendError{Err: err}
	}

	framesSent.Inc()
	bytesSent.Add(len(frame))
	return nil
}

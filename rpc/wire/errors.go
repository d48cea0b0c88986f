package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameSize is wrapped by a ReceiveError when a header announces
	// more than MaxFrameSize bytes
	ErrInvalidFrameSize = errors.New("wire: invalid frame size")

	// ErrMessageTooBig matches every MessageTooBigError
	ErrMessageTooBig = errors.New("wire: message too big")

	// ErrBroken is returned by every call after a framer hit a transport or protocol error
	ErrBroken = errors.New("wire: framer broken by an earlier error")
)

// ReceiveError is a transport or protocol failure while reading a frame
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("failed to receive message: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// SendError is a transport failure while writing a frame
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send message: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// SerializeError is returned when a message fails to encode
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("failed to serialize message: %v", e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// DeserializeError is returned when a received payload fails to decode.
// The frame was consumed completely.
type DeserializeError struct {
	Err error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("failed to deserialize message: %v", e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// MessageTooBigError is returned when an encoded message exceeds MaxFrameSize.
// Nothing was written.
type MessageTooBigError struct {
	Size int
}

func (e *MessageTooBigError) Error() string {
	return fmt.Sprintf("message too big: %d bytes exceeds the %d byte frame limit", e.Size, MaxFrameSize)
}

func (e *MessageTooBigError) Is(target error) bool {
	return target == ErrMessageTooBig
}

// IsProtocolViolation reports whether err comes from a malformed frame header
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrInvalidFrameSize)
}

// IsSerialization reports whether err comes from encoding or decoding a message
func IsSerialization(err error) bool {
	var serErr *SerializeError
	var deErr *DeserializeError
	return errors.As(err, &serErr) || errors.As(err, &deErr)
}

// poisons reports whether err leaves the byte stream at an unknown position
func poisons(err error) bool {
	var recvErr *ReceiveError
	var sendErr *SendError
	return errors.As(err, &recvErr) || errors.As(err, &sendErr)
}

package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmtools/vsh/rpc/proto"
)

// rawMessage carries its payload bytes unchanged
type rawMessage []byte

func (m *rawMessage) MarshalAppend(b []byte) ([]byte, error) {
	return append(b, *m...), nil
}

func (m *rawMessage) Unmarshal(b []byte) error {
	*m = append((*m)[:0], b...)
	return nil
}

func raw(b []byte) *rawMessage {
	m := rawMessage(b)
	return &m
}

// failingMessage can neither be encoded nor decoded
type failingMessage struct{}

var errCodec = errors.New("codec failure")

func (failingMessage) MarshalAppend(b []byte) ([]byte, error) { return b, errCodec }
func (failingMessage) Unmarshal([]byte) error                 { return errCodec }

// droppingMessage grows the buffer past any frame and then fails without
// returning it
type droppingMessage struct{}

func (droppingMessage) MarshalAppend(b []byte) ([]byte, error) {
	_ = append(b, make([]byte, 2*MaxFrameSize)...)
	return nil, errCodec
}
func (droppingMessage) Unmarshal([]byte) error { return errCodec }

// failingWriter accepts reads from its buffer but fails every write
type failingWriter struct {
	bytes.Buffer
}

func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

// TestScenarioRawFrame receives a hand-written frame
func TestScenarioRawFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x03, 0x00, 0x00, 0x00})
	buf.WriteString("foo")

	w := NewWire(&buf)
	var msg rawMessage
	require.NoError(t, w.ReceiveMessage(&msg))
	assert.Equal(t, []byte("foo"), []byte(msg))
	assert.Zero(t, buf.Len())
}

// TestSendFrameLayout checks the exact bytes of a sent frame
func TestSendFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	require.NoError(t, w.SendMessage(raw([]byte("foo"))))
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00, 'f', 'o', 'o'}, buf.Bytes())

	buf.Reset()
	require.NoError(t, w.SendMessage(raw(make([]byte, 0x0102))))
	assert.Equal(t, []byte{0x02, 0x01, 0x00, 0x00}, buf.Bytes()[:HeaderSize])
	assert.Equal(t, HeaderSize+0x0102, buf.Len())
}

// TestRoundTrip sends frames of various sizes, including the limit, and receives them back
func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 3, 100, MaxFrameSize - 1, MaxFrameSize}

	var buf bytes.Buffer
	w := NewWire(&buf)

	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i * 7)
		}
		require.NoError(t, w.SendMessage(raw(payload)), "size %d", size)
	}

	for _, size := range sizes {
		var msg rawMessage
		require.NoError(t, w.ReceiveMessage(&msg), "size %d", size)
		require.Len(t, msg, size)
		for i := range msg {
			if msg[i] != byte(i*7) {
				t.Fatalf("payload of size %d differs at %d", size, i)
			}
		}
	}
	assert.Zero(t, buf.Len())
}

// TestStatusRoundTrip sends a READY status and receives all fields unchanged
func TestStatusRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	sent := &proto.StatusMessage{
		Status:      proto.ConnectionStatusReady,
		Description: "vsh ready",
		Code:        123,
	}
	require.NoError(t, w.SendMessage(sent))

	var received proto.StatusMessage
	require.NoError(t, w.ReceiveMessage(&received))
	assert.Equal(t, proto.ConnectionStatusReady, received.Status)
	assert.Equal(t, "vsh ready", received.Description)
	assert.Equal(t, int32(123), received.Code)
}

// TestOversizedHeaderRejected feeds a garbage header and checks that no payload is read
func TestOversizedHeaderRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	buf.WriteString("trailing bytes")

	w := NewWire(&buf)
	var msg rawMessage
	err := w.ReceiveMessage(&msg)
	require.Error(t, err)

	var recvErr *ReceiveError
	assert.ErrorAs(t, err, &recvErr)
	assert.True(t, IsProtocolViolation(err))
	assert.False(t, IsSerialization(err))
	assert.Equal(t, len("trailing bytes"), buf.Len(), "payload must not be consumed")

	// the framer is broken now
	assert.True(t, w.Broken())
	assert.ErrorIs(t, w.ReceiveMessage(&msg), ErrBroken)
	assert.ErrorIs(t, w.SendMessage(raw(nil)), ErrBroken)
}

// TestHeaderJustOverLimit checks the boundary of the size check
func TestHeaderJustOverLimit(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x10, 0x00, 0x00}) // 4097

	var msg rawMessage
	assert.True(t, IsProtocolViolation(NewWire(&buf).ReceiveMessage(&msg)))
}

// TestOversizedSendRejected checks that nothing is written for a message over the limit
func TestOversizedSendRejected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	err := w.SendMessage(raw(make([]byte, MaxFrameSize+1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMessageTooBig)

	var tooBig *MessageTooBigError
	require.ErrorAs(t, err, &tooBig)
	assert.Equal(t, MaxFrameSize+1, tooBig.Size)
	assert.Zero(t, buf.Len(), "no bytes may be written")

	// the framer is still usable
	assert.False(t, w.Broken())
	require.NoError(t, w.SendMessage(raw([]byte("ok"))))
	assert.Equal(t, HeaderSize+2, buf.Len())
}

// TestSerializeErrorKeepsFramer checks that encode failures write nothing and do not break the framer
func TestSerializeErrorKeepsFramer(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	err := w.SendMessage(failingMessage{})
	var serErr *SerializeError
	require.ErrorAs(t, err, &serErr)
	assert.ErrorIs(t, err, errCodec)
	assert.True(t, IsSerialization(err))
	assert.Zero(t, buf.Len())
	assert.False(t, w.Broken())

	// an empty oneof is a serialization error as well
	err = w.SendMessage(&proto.GuestMessage{})
	assert.True(t, IsSerialization(err))
	assert.ErrorIs(t, err, proto.ErrNoPayload)
}

// TestDeserializeErrorConsumesFrame checks that a bad payload is skipped as a whole
func TestSendKeepsBufferCapacity(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)
	want := cap(w.tx)
	require.Equal(t, HeaderSize+MaxFrameSize, want)

	err := w.SendMessage(raw(make([]byte, 1<<20)))
	assert.ErrorIs(t, err, ErrMessageTooBig)
	assert.Equal(t, want, cap(w.tx), "an oversized message must not keep the grown buffer")

	err = w.SendMessage(droppingMessage{})
	assert.ErrorIs(t, err, errCodec)
	assert.Equal(t, want, cap(w.tx), "a failed serialization must not drop the buffer")

	require.NoError(t, w.SendMessage(raw(make([]byte, MaxFrameSize))))
	assert.Equal(t, want, cap(w.tx))
	assert.Equal(t, HeaderSize+MaxFrameSize, buf.Len())
	assert.False(t, w.Broken())
}

func TestDeserializeErrorConsumesFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	// a truncated varint is not a valid status message
	require.NoError(t, w.SendMessage(raw([]byte{0x08})))
	require.NoError(t, w.SendMessage(proto.NewGuestReady("vsh ready")))

	var status proto.StatusMessage
	err := w.ReceiveMessage(&status)
	var deErr *DeserializeError
	require.ErrorAs(t, err, &deErr)
	assert.True(t, IsSerialization(err))
	assert.False(t, w.Broken())

	var next proto.GuestMessage
	require.NoError(t, w.ReceiveMessage(&next))
	assert.True(t, next.StatusIs(proto.ConnectionStatusReady))
}

// TestReceiveEOF distinguishes a clean close between frames from a close mid-frame
func TestReceiveEOF(t *testing.T) {
	var msg rawMessage

	err := NewWire(&bytes.Buffer{}).ReceiveMessage(&msg)
	var recvErr *ReceiveError
	require.ErrorAs(t, err, &recvErr)
	assert.ErrorIs(t, err, io.EOF)

	partialHeader := bytes.NewBuffer([]byte{0x05, 0x00})
	assert.ErrorIs(t, NewWire(partialHeader).ReceiveMessage(&msg), io.ErrUnexpectedEOF)

	partialPayload := bytes.NewBuffer([]byte{0x05, 0x00, 0x00, 0x00, 'a', 'b'})
	err = NewWire(partialPayload).ReceiveMessage(&msg)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, IsProtocolViolation(err))
}

// TestSendTransportError checks that a failed write breaks the framer
func TestSendTransportError(t *testing.T) {
	w := NewWire(&failingWriter{})

	err := w.SendMessage(raw([]byte("x")))
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.True(t, w.Broken())
	assert.ErrorIs(t, w.SendMessage(raw([]byte("x"))), ErrBroken)
}

// TestFrameCounters checks that sent and received frames are counted
func TestFrameCounters(t *testing.T) {
	var buf bytes.Buffer
	w := NewWire(&buf)

	sentBefore, recvBefore := framesSent.Get(), framesReceived.Get()
	bytesBefore := bytesSent.Get()

	require.NoError(t, w.SendMessage(raw([]byte("abc"))))
	var msg rawMessage
	require.NoError(t, w.ReceiveMessage(&msg))

	assert.Equal(t, sentBefore+1, framesSent.Get())
	assert.Equal(t, recvBefore+1, framesReceived.Get())
	assert.Equal(t, bytesBefore+HeaderSize+3, bytesSent.Get())
}

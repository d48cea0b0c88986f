package wire

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmtools/vsh/rpc/proto"
)

// trickleReader hands out at most one byte per call, then blocks until ctx is done
type trickleReader struct {
	data []byte
}

func (r *trickleReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(r.data) == 0 {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	n := copy(p[:1], r.data)
	r.data = r.data[n:]
	return n, nil
}

// trickleWriter accepts at most one byte per call. Once limit bytes were
// accepted it blocks until ctx is done.
type trickleWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *trickleWriter) WriteContext(ctx context.Context, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if w.limit >= 0 && w.buf.Len() >= w.limit {
			<-ctx.Done()
			return written, ctx.Err()
		}
		w.buf.WriteByte(p[written])
		written++
	}
	return written, nil
}

func encoded(t *testing.T, msg Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWire(&buf).SendMessage(msg))
	return buf.Bytes()
}

// TestAsyncReaderPartialReads assembles frames delivered one byte at a time
func TestAsyncReaderPartialReads(t *testing.T) {
	data := encoded(t, proto.NewGuestReady("vsh ready"))
	data = append(data, encoded(t, proto.NewGuestData(proto.StdioStreamStdout, []byte("out")))...)

	r := NewAsyncReader(&trickleReader{data: data})
	ctx := context.Background()

	var first proto.GuestMessage
	require.NoError(t, r.ReceiveMessage(ctx, &first))
	assert.Equal(t, proto.NewGuestReady("vsh ready"), &first)

	var second proto.GuestMessage
	require.NoError(t, r.ReceiveMessage(ctx, &second))
	require.NotNil(t, second.DataMessage)
	assert.Equal(t, []byte("out"), second.DataMessage.Data)
}

// TestAsyncReaderOversizedHeader checks the bounded read on the async path
func TestAsyncReaderOversizedHeader(t *testing.T) {
	r := NewAsyncReader(&trickleReader{data: []byte{0xff, 0xff, 0xff, 0xff, 1, 2, 3}})

	var msg rawMessage
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := r.ReceiveMessage(ctx, &msg)
	assert.True(t, IsProtocolViolation(err))
	assert.True(t, r.Broken())
	assert.ErrorIs(t, r.ReceiveMessage(ctx, &msg), ErrBroken)
}

// TestAsyncReaderCancelBeforeFrame checks that cancelling an idle receive keeps the reader usable
func TestAsyncReaderCancelBeforeFrame(t *testing.T) {
	src := &trickleReader{}
	r := NewAsyncReader(src)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	var msg rawMessage
	err := r.ReceiveMessage(ctx, &msg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Broken())

	// a frame arriving later is still read correctly
	src.data = encoded(t, raw([]byte("late")))
	require.NoError(t, r.ReceiveMessage(context.Background(), &msg))
	assert.Equal(t, []byte("late"), []byte(msg))
}

// TestAsyncReaderCancelMidFrame checks that cancelling after part of a frame breaks the reader
func TestAsyncReaderCancelMidFrame(t *testing.T) {
	full := encoded(t, raw([]byte("payload")))
	r := NewAsyncReader(&trickleReader{data: full[:HeaderSize+2]})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var msg rawMessage
	err := r.ReceiveMessage(ctx, &msg)
	var recvErr *ReceiveError
	require.ErrorAs(t, err, &recvErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, r.Broken())
	assert.ErrorIs(t, r.ReceiveMessage(context.Background(), &msg), ErrBroken)
}

// TestAsyncWriterFrames checks the bytes produced by the async writer
func TestAsyncWriterFrames(t *testing.T) {
	dst := &trickleWriter{limit: -1}
	w := NewAsyncWriter(dst)

	require.NoError(t, w.SendMessage(context.Background(), raw([]byte("foo"))))
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00, 'f', 'o', 'o'}, dst.buf.Bytes())
}

// TestAsyncWriterOversized checks that an oversized message is rejected without writing
func TestAsyncWriterOversized(t *testing.T) {
	dst := &trickleWriter{limit: -1}
	w := NewAsyncWriter(dst)

	err := w.SendMessage(context.Background(), raw(make([]byte, MaxFrameSize+1)))
	assert.ErrorIs(t, err, ErrMessageTooBig)
	assert.Zero(t, dst.buf.Len())
	assert.False(t, w.Broken())
}

// TestAsyncWriterCancel checks cancellation before and during a frame
func TestAsyncWriterKeepsBufferCapacity(t *testing.T) {
	dst := &trickleWriter{limit: -1}
	w := NewAsyncWriter(dst)
	want := cap(w.tx)

	err := w.SendMessage(context.Background(), raw(make([]byte, 1<<20)))
	assert.ErrorIs(t, err, ErrMessageTooBig)
	assert.Equal(t, want, cap(w.tx))

	err = w.SendMessage(context.Background(), droppingMessage{})
	assert.ErrorIs(t, err, errCodec)
	assert.Equal(t, want, cap(w.tx))

	assert.Zero(t, dst.buf.Len())
	assert.False(t, w.Broken())
}

func TestAsyncWriterCancel(t *testing.T) {
	t.Run("before first byte", func(t *testing.T) {
		dst := &trickleWriter{limit: 0}
		w := NewAsyncWriter(dst)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := w.SendMessage(ctx, raw([]byte("foo")))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, w.Broken())
	})

	t.Run("mid frame", func(t *testing.T) {
		dst := &trickleWriter{limit: 2}
		w := NewAsyncWriter(dst)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := w.SendMessage(ctx, raw([]byte("foo")))
		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.True(t, w.Broken())
		assert.ErrorIs(t, w.SendMessage(context.Background(), raw(nil)), ErrBroken)
	})
}

package wire

import (
	"context"
)

// ContextReader is the read side an AsyncReader frames, e.g. *stream.ReadHalf
type ContextReader interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// ContextWriter is the write side an AsyncWriter frames, e.g. *stream.WriteHalf
type ContextWriter interface {
	WriteContext(ctx context.Context, p []byte) (int, error)
}

// --------------------------------------------------------------------------
// AsyncReader
// --------------------------------------------------------------------------

// AsyncReader receives frames from the read half of a connection.
// It has a single owner, so frames are read strictly one after another.
type AsyncReader struct {
	r      ContextReader
	header [HeaderSize]byte
	rx     []byte
	broken bool
}

// NewAsyncReader creates a framer over r
func NewAsyncReader(r ContextReader) *AsyncReader {
	return &AsyncReader{r: r, rx: make([]byte, MaxFrameSize)}
}

// ReceiveMessage reads one frame and decodes it into msg, parking the goroutine
// while no data is available. If ctx ends before the first byte of the frame
// was read the context error is returned and the reader stays usable; if it
// ends mid-frame the reader is broken.
func (a *AsyncReader) ReceiveMessage(ctx context.Context, msg Message) error {
	if a.broken {
		return ErrBroken
	}

	cr := &ctxReader{ctx: ctx, r: a.r}
	payload, err := readFrame(cr, a.header[:], a.rx)
	if err != nil {
		if cr.n == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		return a.fail(err)
	}

	if err := msg.Unmarshal(payload); err != nil {
		return a.fail(&DeserializeError{Err: err})
	}
	return nil
}

// Broken reports whether an earlier error made the reader unusable
func (a *AsyncReader) Broken() bool {
	return a.broken
}

func (a *AsyncReader) fail(err error) error {
	countError(err)
	if poisons(err) {
		a.broken = true
		Logger.Debugf("async reader broken: %v", err)
	}
	return err
}

// --------------------------------------------------------------------------
// AsyncWriter
// --------------------------------------------------------------------------

// AsyncWriter sends frames on the write half of a connection.
// It has a single owner, so frames are written strictly one after another.
type AsyncWriter struct {
	w      ContextWriter
	tx     []byte
	broken bool
}

// NewAsyncWriter creates a framer over w
func NewAsyncWriter(w ContextWriter) *AsyncWriter {
	return &AsyncWriter{w: w, tx: make([]byte, 0, HeaderSize+MaxFrameSize)}
}

// SendMessage encodes msg and writes it as one frame, parking the goroutine
// while the socket buffer is full. Cancellation after the first byte was
// written breaks the writer.
func (a *AsyncWriter) SendMessage(ctx context.Context, msg Message) error {
	if a.broken {
		return ErrBroken
	}

	frame, err := encodeFrame(msg, a.tx)
	a.tx = frame[:0]
	if err != nil {
		return a.fail(err)
	}

	cw := &ctxWriter{ctx: ctx, w: a.w}
	if err := writeFrame(cw, frame); err != nil {
		if cw.n == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		return a.fail(err)
	}
	return nil
}

// Broken reports whether an earlier error made the writer unusable
func (a *AsyncWriter) Broken() bool {
	return a.broken
}

func (a *AsyncWriter) fail(err error) error {
	countError(err)
	if poisons(err) {
		a.broken = true
		Logger.Debugf("async writer broken: %v", err)
	}
	return err
}

// --------------------------------------------------------------------------
// Context Adapters
// --------------------------------------------------------------------------

// ctxReader binds a context to a ContextReader and counts the bytes read
type ctxReader struct {
	ctx context.Context
	r   ContextReader
	n   int
}

func (c *ctxReader) Read(p []byte) (int, error) {
	n, err := c.r.ReadContext(c.ctx, p)
	c.n += n
	return n, err
}

// ctxWriter binds a context to a ContextWriter and counts the bytes written
type ctxWriter struct {
	ctx context.Context
	w   ContextWriter
	n   int
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	n, err := c.w.WriteContext(c.ctx, p)
	c.n += n
	return n, err
}

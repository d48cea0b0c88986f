package client

import (
	"context"

	"github.com/vmtools/vsh/lib/stream"
)

// boundStream adapts a stream to io.ReadWriter for the synchronous framer.
// Reads and writes park on ctx, which the client sets around every frame operation.
type boundStream struct {
	s   *stream.Stream
	ctx context.Context
}

func (b *boundStream) context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *boundStream) Read(p []byte) (int, error) {
	return b.s.ReadContext(b.context(), p)
}

func (b *boundStream) Write(p []byte) (int, error) {
	return b.s.WriteContext(b.context(), p)
}

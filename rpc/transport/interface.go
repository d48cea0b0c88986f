package transport

import (
	"context"

	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ConnHandler handles one accepted connection.
// The handler owns conn and must close it (or both of its halves) before returning.
// ctx is cancelled when the server shuts down.
type ConnHandler func(ctx context.Context, conn *stream.Stream)

// IServerTransport is the interface for the server side of a transport
type IServerTransport interface {
	// RegisterHandler registers the handler called for every accepted connection
	RegisterHandler(handler ConnHandler)
	// Listen accepts connections until ctx is done. It returns after every
	// running handler returned.
	Listen(ctx context.Context, config common.ServerConfig) error
	// GetName returns the name of the transport type (e.g., "unix", "vsock")
	GetName() string
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for the client side of a transport
type IClientTransport interface {
	// Connect dials the configured endpoint, retrying with backoff, and returns
	// the connection as a non-blocking stream
	Connect(ctx context.Context, config common.ClientConfig) (*stream.Stream, error)
	// GetName returns the name of the transport type (e.g., "unix", "vsock")
	GetName() string
}

package vsock

import (
	"context"
	"fmt"
	"net"

	"github.com/mdlayher/vsock"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for VSOCK
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "vsock"
}

// Connect dials config.CID:config.Port. vsock.Dial does not take a context,
// so ctx is only checked before dialing.
func (c *clientConnector) Connect(ctx context.Context, config common.TransportConfig) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vsock.Dial(config.CID, config.Port, nil)
}

func (c *clientConnector) Adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error) {
	return adopt(conn, r)
}

// adopt converts a vsock connection into a stream
func adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error) {
	vsockConn, ok := conn.(*vsock.Conn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("expected a vsock connection, got %T", conn)
	}
	return stream.FromVsockConn(vsockConn, r)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewVsockClientTransport creates a new VSOCK client transport
func NewVsockClientTransport(r reactor.IRegistrar) transport.IClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, r)
}

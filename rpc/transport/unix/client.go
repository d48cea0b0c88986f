package unix

import (
	"context"
	"fmt"
	"net"

	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(ctx context.Context, config common.TransportConfig) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", config.Endpoint)
}

func (c *clientConnector) Adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error) {
	return adopt(conn, r)
}

// adopt converts a unix connection into a stream
func adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("expected a unix connection, got %T", conn)
	}
	return stream.FromUnixConn(unixConn, r)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport(r reactor.IRegistrar) transport.IClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, r)
}

package vsock

import (
	"fmt"
	"net"

	"github.com/mdlayher/vsock"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/transport/base"
)

// serverConnector implements the IServerConnector interface for VSOCK
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "vsock"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	// Listens on every context id of this machine
	listener, err := vsock.Listen(config.Transport.Port, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vsock listener on port %d: %v", config.Transport.Port, err)
	}

	if cid, err := vsock.ContextID(); err == nil {
		base.Logger.Debugf("Local vsock context id is %d", cid)
	}

	return listener, nil
}

func (c *serverConnector) Adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error) {
	return adopt(conn, r)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewVsockServerTransport creates a new VSOCK server transport
func NewVsockServerTransport(r reactor.IRegistrar) transport.IServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, r)
}

package base

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the configured address
	Connect(ctx context.Context, config common.TransportConfig) (net.Conn, error)

	// Adopt turns a dialed connection into a stream registered with r
	Adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error)

	// GetName returns the name of the transport type (e.g., "unix", "vsock")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, vsock)
type clientTransport struct {
	connector IClientConnector
	registrar reactor.IRegistrar
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix, vsock)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport whose streams are registered with r
func NewBaseClientTransport(connector IClientConnector, r reactor.IRegistrar) transport.IClientTransport {
	return &clientTransport{
		connector: connector,
		registrar: r,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) GetName() string {
	return t.connector.GetName()
}

func (t *clientTransport) Connect(ctx context.Context, config common.ClientConfig) (*stream.Stream, error) {
	if err := config.Transport.Validate(); err != nil {
		return nil, err
	}

	// We always try at least once
	attempts := max(1, config.RetryCount)
	address := config.Transport.Address()

	var conn net.Conn
	dial := func() error {
		dialCtx := ctx
		if timeout := config.Timeout(); timeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		c, err := t.connector.Connect(dialCtx, config.Transport)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	notify := func(err error, wait time.Duration) {
		Logger.Debugf("Connecting to %s failed, retrying in %s: %v", address, wait, err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(dial, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", address, attempts, err)
	}

	s, err := t.connector.Adopt(conn, t.registrar)
	if err != nil {
		return nil, err
	}

	Logger.Infof("Connected to %s using %s transport", address, t.connector.GetName())
	return s, nil
}

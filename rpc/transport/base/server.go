package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
)

// acceptRetryDelay throttles the accept loop after a failed accept
const acceptRetryDelay = 50 * time.Millisecond

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// Adopt turns an accepted connection into a stream registered with r
	Adopt(conn net.Conn, r reactor.IRegistrar) (*stream.Stream, error)

	// GetName returns the name of the transport type (e.g., "unix", "vsock")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	registrar reactor.IRegistrar
	handler   transport.ConnHandler
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix, vsock)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport whose streams are registered with r
func NewBaseServerTransport(connector IServerConnector, r reactor.IRegistrar) transport.IServerTransport {
	return &serverTransport{
		connector: connector,
		registrar: r,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ConnHandler) {
	t.handler = handler
}

func (t *serverTransport) GetName() string {
	return t.connector.GetName()
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no connection handler registered")
	}

	// Bounded pool of connection handlers, Submit blocks while all are busy
	maxConns := max(1, config.MaxConnections)
	pool, err := ants.NewPool(maxConns,
		ants.WithLogger(poolLogger{}),
		ants.WithPanicHandler(func(p interface{}) {
			Logger.Errorf("Connection handler panicked: %v", p)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create handler pool: %v", err)
	}
	defer pool.Release()

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	// Closing the listener ends the accept loop
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	Logger.Infof("Starting %s server on %s with at most %d connections",
		t.connector.GetName(), config.Transport.Address(), maxConns)

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		s, err := t.connector.Adopt(conn, t.registrar)
		if err != nil {
			Logger.Errorf("Failed to adopt connection: %v", err)
			continue
		}
		Logger.Debugf("Accepted %s connection on fd %d", s.Kind(), s.Fd())

		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()
			t.handler(ctx, s)
		})
		if err != nil {
			wg.Done()
			_ = s.Close()
			Logger.Warningf("Rejected connection: %v", err)
		}
	}

	// Wait for all handlers to finish before returning
	Logger.Infof("Stopping %s server, waiting for %d connections", t.connector.GetName(), pool.Running())
	wg.Wait()

	return nil
}

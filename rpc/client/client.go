package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/proto"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/wire"
)

var Logger = logger.GetLogger("vsh")

// defaultExitTimeout bounds the EXITED exchange in Close when no timeout is configured
const defaultExitTimeout = 5 * time.Second

var (
	// ErrNotReady is returned by WaitReady when the guest greets with anything but READY
	ErrNotReady = errors.New("vsh: guest is not ready")

	// ErrNotConnected is returned by every operation before Connect succeeded or after Close
	ErrNotConnected = errors.New("vsh: not connected")
)

// Client is the host side of a vsh connection. It frames the connection with
// a synchronous wire.Wire and is not safe for concurrent use.
type Client struct {
	config    common.ClientConfig
	transport transport.IClientTransport

	conn   *stream.Stream
	bound  *boundStream
	wire   *wire.Wire
	ready  bool
	exited bool
}

// NewClient creates a client that dials through transport once Connect is called
func NewClient(config common.ClientConfig, transport transport.IClientTransport) *Client {
	return &Client{
		config:    config,
		transport: transport,
	}
}

// Connect dials the guest with the configured retries
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return errors.New("vsh: already connected")
	}

	conn, err := c.transport.Connect(ctx, c.config)
	if err != nil {
		return err
	}

	c.conn = conn
	c.bound = &boundStream{s: conn}
	c.wire = wire.NewWire(c.bound)
	c.ready = false
	c.exited = false
	return nil
}

// WaitReady receives the guest's greeting. It returns the status when it is
// READY and ErrNotReady otherwise.
func (c *Client) WaitReady(ctx context.Context) (*proto.StatusMessage, error) {
	msg, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}

	if !msg.StatusIs(proto.ConnectionStatusReady) {
		if msg.StatusMessage != nil {
			return msg.StatusMessage, fmt.Errorf("%w: status %s (%q, code %d)", ErrNotReady,
				msg.StatusMessage.Status, msg.StatusMessage.Description, msg.StatusMessage.Code)
		}
		return nil, fmt.Errorf("%w: expected a status message", ErrNotReady)
	}

	c.ready = true
	Logger.Debugf("Guest is ready: %q", msg.StatusMessage.Description)
	return msg.StatusMessage, nil
}

// Ready reports whether the guest completed the handshake
func (c *Client) Ready() bool {
	return c.ready
}

// Send writes one message to the guest
func (c *Client) Send(ctx context.Context, msg *proto.HostMessage) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := c.withTimeout(ctx, c.config.Timeout())
	defer cancel()

	c.bound.ctx = ctx
	defer func() { c.bound.ctx = nil }()

	return c.wire.SendMessage(msg)
}

// Receive reads one message from the guest
func (c *Client) Receive(ctx context.Context) (*proto.GuestMessage, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := c.withTimeout(ctx, c.config.Timeout())
	defer cancel()

	c.bound.ctx = ctx
	defer func() { c.bound.ctx = nil }()

	msg := &proto.GuestMessage{}
	if err := c.wire.ReceiveMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Exit sends EXITED with code and waits until the guest echoes it.
// Guest messages arriving in between are discarded.
func (c *Client) Exit(ctx context.Context, code int32) error {
	if c.exited {
		return nil
	}

	if err := c.Send(ctx, proto.NewHostExited(code)); err != nil {
		return err
	}
	c.exited = true

	for {
		msg, err := c.Receive(ctx)
		switch {
		case err == nil:
		case wire.IsSerialization(err):
			continue
		case errors.Is(err, io.EOF):
			// the guest went away without echoing
			return nil
		default:
			return err
		}

		if msg.StatusIs(proto.ConnectionStatusExited) {
			Logger.Debugf("Guest acknowledged exit")
			return nil
		}
	}
}

// Close ends the session and releases the connection. After a completed
// handshake it exchanges EXITED with the guest first.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	var exitErr error
	if c.ready && !c.exited && !c.wire.Broken() {
		timeout := c.config.Timeout()
		if timeout <= 0 {
			timeout = defaultExitTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		exitErr = c.Exit(ctx, 0)
		cancel()
		if exitErr != nil {
			Logger.Warningf("Guest did not acknowledge exit: %v", exitErr)
		}
	}

	closeErr := c.conn.Close()
	c.conn = nil
	c.bound = nil
	c.wire = nil
	c.ready = false

	return errors.Join(exitErr, closeErr)
}

func (c *Client) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

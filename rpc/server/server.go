package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/lib/util"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/proto"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/wire"
)

var Logger = logger.GetLogger("vshd")

// Stats is a snapshot of the connection accounting of a server
type Stats struct {
	// Active is the number of connections currently handled
	Active int64
	// Accepted is the number of connections handed to the server
	Accepted int64
	// Handshakes is the number of READY messages written
	Handshakes int64
	// HandshakeMean is the mean time from accepting a connection to writing READY
	HandshakeMean time.Duration
}

// Server is the vshd guest service. Every connection is greeted with READY
// and torn down once the host sends EXITED or goes away.
type Server struct {
	config    common.ServerConfig
	transport transport.IServerTransport

	registry  gometrics.Registry
	active    gometrics.Counter
	accepted  gometrics.Meter
	handshake gometrics.Timer
}

// NewServer creates a new guest service
//
// Usage:
//
//	s := server.NewServer(*config, unix.NewUnixServerTransport(r))
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, transport transport.IServerTransport) *Server {
	s := &Server{
		config:    config,
		transport: transport,
		registry:  gometrics.NewRegistry(),
		active:    gometrics.NewCounter(),
		accepted:  gometrics.NewMeter(),
		handshake: gometrics.NewTimer(),
	}

	_ = s.registry.Register("connections.active", s.active)
	_ = s.registry.Register("connections.accepted", s.accepted)
	_ = s.registry.Register("connections.handshake", s.handshake)

	Logger.Infof("Created vshd server")
	Logger.Infof(config.String())

	return s
}

// Serve runs the service until ctx is done. It returns once every
// connection handler has finished.
func (s *Server) Serve(ctx context.Context) error {
	defer s.accepted.Stop()

	if s.config.MetricsEndpoint != "" {
		stop, err := s.serveMetrics(s.config.MetricsEndpoint)
		if err != nil {
			return err
		}
		defer stop()
	}

	s.transport.RegisterHandler(s.handleConnection)
	err := s.transport.Listen(ctx, s.config)

	stats := s.Stats()
	Logger.Infof("Served %d connections, %d handshakes, mean handshake %s",
		stats.Accepted, stats.Handshakes, stats.HandshakeMean)

	return err
}

// Stats returns a snapshot of the connection accounting
func (s *Server) Stats() Stats {
	snapshot := s.handshake.Snapshot()
	return Stats{
		Active:        s.active.Count(),
		Accepted:      s.accepted.Count(),
		Handshakes:    snapshot.Count(),
		HandshakeMean: time.Duration(snapshot.Mean()),
	}
}

// Registry exposes the connection metrics of this server
func (s *Server) Registry() gometrics.Registry {
	return s.registry
}

// serveMetrics exposes the wire counters in the Prometheus text format.
// The returned function stops the http server.
func (s *Server) serveMetrics(endpoint string) (func(), error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %v", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// --------------------------------------------------------------------------
// Connection handling
// --------------------------------------------------------------------------

// handleConnection owns conn until it returns. The read loop runs on the
// calling goroutine; every outgoing message goes through the outbox to the
// single writer goroutine.
func (s *Server) handleConnection(ctx context.Context, conn *stream.Stream) {
	start := time.Now()
	s.accepted.Mark(1)
	s.active.Inc(1)
	defer s.active.Dec(1)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rh, wh, err := conn.Split()
	if err != nil {
		Logger.Warningf("Dropping connection: %v", err)
		return
	}
	defer func() {
		_ = rh.Close()
		_ = wh.Close()
	}()

	outbox := util.NewOutbox[*proto.GuestMessage]()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(connCtx, cancel, wh, outbox, start)
	}()

	outbox.Push(proto.NewGuestReady(s.config.ReadyDescription))
	s.readLoop(connCtx, rh, outbox)

	// let the writer flush what is queued, e.g. the EXITED reply
	outbox.Close()
	<-writerDone

	Logger.Debugf("Closed connection after %s", time.Since(start))
}

// readLoop receives host messages until the host exits, closes, or breaks the framing
func (s *Server) readLoop(ctx context.Context, rh *stream.ReadHalf, outbox *util.Outbox[*proto.GuestMessage]) {
	reader := wire.NewAsyncReader(rh)

	for {
		var msg proto.HostMessage
		err := reader.ReceiveMessage(ctx, &msg)

		switch {
		case err == nil:
		case wire.IsSerialization(err):
			// the frame was consumed, the next one starts on a boundary
			Logger.Warningf("Skipping undecodable host message: %v", err)
			continue
		case errors.Is(err, io.EOF):
			Logger.Debugf("Host closed the connection")
			return
		case ctx.Err() != nil:
			return
		default:
			Logger.Warningf("Dropping connection: %v", err)
			return
		}

		if msg.StatusIs(proto.ConnectionStatusExited) {
			Logger.Debugf("Host exited with code %d", msg.StatusMessage.Code)
			outbox.Push(proto.NewGuestStatus(proto.ConnectionStatusExited, "", 0))
			return
		}

		Logger.Debugf("Received %s message", msg.Kind())
	}
}

// writeLoop sends queued messages in order. After a failed send it cancels the
// connection and only drains the outbox so producers never block.
func (s *Server) writeLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	wh *stream.WriteHalf,
	outbox *util.Outbox[*proto.GuestMessage],
	start time.Time,
) {
	writer := wire.NewAsyncWriter(wh)
	failed := false
	greeted := false

	for msg := range outbox.Recv() {
		if failed {
			continue
		}

		if err := s.send(ctx, writer, msg); err != nil {
			if !errors.Is(err, context.Canceled) {
				Logger.Warningf("Failed to send %s message: %v", describe(msg), err)
			}
			failed = true
			cancel()
			continue
		}

		if !greeted {
			greeted = true
			s.handshake.UpdateSince(start)
		}
	}
}

// send writes one message, bounded by the configured timeout
func (s *Server) send(ctx context.Context, writer *wire.AsyncWriter, msg *proto.GuestMessage) error {
	if timeout := s.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return writer.SendMessage(ctx, msg)
}

func describe(msg *proto.GuestMessage) string {
	if msg.StatusMessage != nil {
		return msg.StatusMessage.Status.String()
	}
	return "data"
}

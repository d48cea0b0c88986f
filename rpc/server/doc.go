// Package server implements vshd, the guest side service of vsh.
//
// The service listens on a unix or vsock transport and handles every accepted
// connection on its own goroutine from a bounded pool. A connection is split
// into its read and write halves: the read half is framed by a
// wire.AsyncReader on the handler goroutine, the write half by a
// wire.AsyncWriter on a writer goroutine that drains the connection's outbox.
// So each direction has exactly one frame operation in flight.
//
// Connection Lifecycle:
//
//  1. vshd queues a READY status carrying the configured ready description
//  2. host messages are read in a loop; data, resize and signal messages are
//     only logged
//  3. an EXITED status from the host is answered with EXITED and the
//     connection is closed after the reply was written
//  4. end of stream or a broken framer closes the connection, undecodable
//     messages are skipped
//
// Key Components:
//
//   - Server: Created with NewServer, runs with Serve until its context ends.
//     Shutdown closes the listener and waits for every connection handler.
//
//   - Stats: Connection accounting backed by github.com/rcrowley/go-metrics,
//     logged when Serve returns
//
// If a metrics endpoint is configured, the wire counters are served in the
// Prometheus text format on /metrics.
//
// Usage Example:
//
//	r, _ := reactor.NewReactor()
//	go r.Run(ctx)
//
//	s := server.NewServer(common.ServerConfig{
//	  Transport:        common.TransportConfig{Kind: common.TransportVsock, Port: 5000},
//	  MaxConnections:   16,
//	  TimeoutSecond:    5,
//	  ReadyDescription: "vsh ready",
//	}, vsock.NewVsockServerTransport(r))
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server

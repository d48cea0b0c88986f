// Package base provides the foundation for the vsh transport layers, implementing
// the connection handling that does not depend on the socket family (Unix
// sockets, VSOCK). It serves as a base layer that is extended with
// protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Handing every connection over as a non-blocking stream registered with the reactor
//   - Bounding the number of concurrently handled connections
//   - Robust dialing with retries and exponential backoff
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (listen, dial and adopting a net.Conn into a stream) that allow extending
//     the base transport with different socket families.
//
//   - clientTransport: Core client implementation. Dials with exponential backoff
//     (github.com/cenkalti/backoff/v4) for the configured number of attempts and
//     adopts the connection into a *stream.Stream.
//
//   - serverTransport: Core server implementation. Accepts connections, adopts
//     them and runs the registered handler for each one on a bounded worker pool
//     (github.com/panjf2000/ants/v2). When the pool is saturated the accept loop
//     waits, leaving further connections in the listen backlog.
//
// Shutdown:
//
//	Cancelling the context passed to Listen closes the listener. Listen then
//	waits until every running handler returned; handlers observe the same
//	context and are expected to tear their connection down.
//
// Thread Safety:
//
//	Transports are configured once and then used from a single goroutine
//	(Listen or Connect). Handlers run concurrently on the pool.
package base

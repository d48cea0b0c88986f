// Package transport defines the interfaces for establishing vsh connections.
// It provides a common contract that all transport implementations fulfill,
// so the guest service and the host client do not depend on the socket family.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Handing every established connection over as a non-blocking stream
//   - Enabling multiple transport implementations (Unix sockets, VSOCK)
//
// Key Components:
//
//   - IServerTransport: Interface for server-side transports that accept
//     connections and run a ConnHandler for each of them.
//
//   - IClientTransport: Interface for client-side transports that dial an
//     endpoint and return the connection as a *stream.Stream.
//
//   - ConnHandler: Function type for connection handling callbacks.
package transport

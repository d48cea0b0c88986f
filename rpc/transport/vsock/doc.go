// Package vsock implements the vsh transport over AF_VSOCK sockets using
// github.com/mdlayher/vsock. It is the transport between a virtual machine
// guest running vshd and the host running vsh.
//
// Key Components:
//
//   - clientConnector: Dials a context id and port. The host addresses a guest
//     by its context id; a guest reaches the host at vsock.Host (2).
//
//   - serverConnector: Listens on a port for every local context id
//
// Accepted and dialed *vsock.Conn values are adopted into non-blocking streams
// by duplicating their descriptor, exactly like the unix transport.
package vsock

// Package unix implements the vsh transport over Unix domain sockets. It is used
// when host and guest share a file system namespace, for example in tests or
// when vshd runs in a container instead of a virtual machine.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting all core functionality like bounded connection handling,
// dial retries and stream adoption from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, replacing a stale socket file
package unix

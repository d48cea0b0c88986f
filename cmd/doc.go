// Package cmd implements the command-line interface of vsh. A single binary
// runs both sides of a connection:
//
//   - serve: Starts vshd, the guest service, on a vsock port or unix socket
//   - connect: Dials vshd, waits for READY and exchanges EXITED on the way out;
//     connect perf benchmarks handshakes and data frames
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See vsh -help for a list of all commands.
package cmd

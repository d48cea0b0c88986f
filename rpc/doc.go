// Package rpc provides the message layer of vsh: everything between a
// connected byte stream and the guest service or host client on either end.
//
// The package is organized into several subpackages:
//
//   - proto: The vsh message schema (GuestMessage, HostMessage and their
//     members) encoded in the protobuf wire format.
//
//   - wire: Length-prefixed framing with a 4 byte little endian header and a
//     4096 byte payload limit, as a synchronous Wire and as split
//     AsyncReader/AsyncWriter framers.
//
//   - transport: Connection establishment with pluggable implementations
//     (Unix sockets, VSOCK) handing out non-blocking streams.
//
//   - common: Configuration structures and logging shared by all packages.
//
//   - server: vshd, the guest service greeting every connection with READY.
//
//   - client: vsh, the host client performing the READY/EXITED handshake.
package rpc

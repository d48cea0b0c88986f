// Package common provides the configuration structures and logging setup
// shared by the vsh guest service, the host client and the CLI.
//
// The package focuses on:
//   - Configuration structures for the guest service and the host client
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - TransportConfig: Socket family (unix or vsock) and address, with validation
//     and a printable form used in log lines.
//
//   - ServerConfig: Configuration of vshd, including the connection limit, the
//     send timeout, the READY description and the optional metrics endpoint.
//
//   - ClientConfig: Configuration of vsh, controlling timeouts and dial retries.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's logger
//     factory, so every package logger shares one format and level.
package common

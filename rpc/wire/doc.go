// Package wire implements the vsh message framer: every message travels as one
// frame made of a 4-byte little-endian payload length followed by the payload,
// which is the encoded message. Frames never exceed MaxFrameSize payload bytes;
// larger messages are rejected on send and oversized headers are rejected on
// receive before any payload byte is read.
//
// Frame Layout:
//
//	+----------------------+---------------------------+
//	| length (uint32, LE)  | payload (length bytes)    |
//	+----------------------+---------------------------+
//	  4 bytes                0..MaxFrameSize bytes
//
// Key Components:
//
//   - Wire: Synchronous framer over any io.ReadWriter, owning one receive and
//     one transmit buffer. Used by the host client.
//
//   - AsyncReader/AsyncWriter: Framers over the read and write halves of a split
//     stream. Each operation takes a context and parks the calling goroutine
//     between attempts instead of blocking a thread. Used by the guest service.
//
// Error Handling:
//
//	Transport failures and protocol violations leave the byte stream at an
//	unknown position, so they break the framer: every later call returns
//	ErrBroken and the connection has to be torn down. Serialization failures and
//	rejected oversized sends happen on a frame boundary and leave the framer
//	usable. Cancelling a context mid-frame breaks the framer as well.
//
// Metrics:
//
//	Frame and byte counters are registered in the default VictoriaMetrics set as
//	vsh_wire_frames_received_total, vsh_wire_frames_sent_total,
//	vsh_wire_bytes_received_total, vsh_wire_bytes_sent_total and
//	vsh_wire_errors_total{kind="..."}.
package wire

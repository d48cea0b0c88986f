// Package proto contains the vsh message schema carried inside wire frames.
//
// Messages are encoded with the protocol buffers wire format using
// google.golang.org/protobuf/encoding/protowire, so peers built from the vsh
// .proto definitions interoperate with this package without generated code.
// Every message type implements wire.Message (MarshalAppend and Unmarshal).
//
// Encoding Rules:
//
//   - Scalar fields holding their zero value are omitted (proto3 semantics)
//   - Map entries are written in key order so encodings are deterministic
//   - Unknown fields and fields with an unexpected wire type are skipped
//   - Truncated or malformed input is reported as an error
//
// Message Overview:
//
//	GuestMessage: sent by vshd, carries either a DataMessage or a StatusMessage
//	HostMessage:  sent by vsh, carries a DataMessage, StatusMessage,
//	              WindowResizeMessage or a Signal
//	SetupConnectionRequest/SetupConnectionResponse: connection setup exchange
package proto

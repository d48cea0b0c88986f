package proto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldFunc decodes the value of one field and returns the number of bytes it
// consumed, or a negative protowire error code
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk calls fn for every field in b
func walk(name string, b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("proto: %s: %w", name, protowire.ParseError(n))
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("proto: %s: field %d: %w", name, num, err)
		}
		if n < 0 {
			return fmt.Errorf("proto: %s: field %d: %w", name, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// skip consumes a field this package does not know
func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

// --------------------------------------------------------------------------
// Append Helpers (zero values are omitted)
// --------------------------------------------------------------------------

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendEnum(b []byte, num protowire.Number, v int32) []byte {
	// negative enum values are sign extended like int32 fields
	return appendVarint(b, num, uint64(int64(v)))
}

func appendSint32(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// marshaler is implemented by every message of this package
type marshaler interface {
	MarshalAppend(b []byte) ([]byte, error)
}

// appendMessage writes m as a length-delimited embedded message. Unlike scalar
// fields an embedded message is written even when empty, so oneof members survive.
func appendMessage(b []byte, num protowire.Number, m marshaler) ([]byte, error) {
	inner, err := m.MarshalAppend(nil)
	if err != nil {
		return b, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner), nil
}

// --------------------------------------------------------------------------
// Consume Helpers (return the consumed length like protowire)
// --------------------------------------------------------------------------

func consumeEnum[E ~int32](b []byte, dst *E) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = E(int32(v))
	}
	return n
}

func consumeUint32(b []byte, dst *uint32) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = uint32(v)
	}
	return n
}

func consumeSint32(b []byte, dst *int32) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int32(protowire.DecodeZigZag(v))
	}
	return n
}

func consumeBool(b []byte, dst *bool) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

func consumeString(b []byte, dst *string) int {
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

// consumeBytes copies the value, the frame buffer it points into is reused
func consumeBytes(b []byte, dst *[]byte) int {
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte(nil), v...)
	}
	return n
}

// consumeMessage decodes an embedded message into m
func consumeMessage(b []byte, m interface{ Unmarshal([]byte) error }) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, m.Unmarshal(v)
}

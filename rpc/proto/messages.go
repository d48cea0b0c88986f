package proto

import (
	"errors"
	"maps"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNoPayload is returned when marshaling a GuestMessage or HostMessage with no oneof member set
var ErrNoPayload = errors.New("proto: message has no payload")

// --------------------------------------------------------------------------
// StatusMessage
// --------------------------------------------------------------------------

// StatusMessage reports the state of a connection
type StatusMessage struct {
	Status      ConnectionStatus // field 1
	Description string           // field 2
	Code        int32            // field 3, sint32
}

func (m *StatusMessage) MarshalAppend(b []byte) ([]byte, error) {
	b = appendEnum(b, 1, int32(m.Status))
	b = appendString(b, 2, m.Description)
	b = appendSint32(b, 3, m.Code)
	return b, nil
}

func (m *StatusMessage) Unmarshal(b []byte) error {
	*m = StatusMessage{}
	return walk("StatusMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeEnum(b, &m.Status), nil
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &m.Description), nil
		case num == 3 && typ == protowire.VarintType:
			return consumeSint32(b, &m.Code), nil
		}
		return skip(num, typ, b)
	})
}

// --------------------------------------------------------------------------
// DataMessage
// --------------------------------------------------------------------------

// DataMessage carries bytes of one standard stream
type DataMessage struct {
	Stream StdioStream // field 1
	Data   []byte      // field 2
}

func (m *DataMessage) MarshalAppend(b []byte) ([]byte, error) {
	b = appendEnum(b, 1, int32(m.Stream))
	b = appendBytes(b, 2, m.Data)
	return b, nil
}

func (m *DataMessage) Unmarshal(b []byte) error {
	*m = DataMessage{}
	return walk("DataMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeEnum(b, &m.Stream), nil
		case num == 2 && typ == protowire.BytesType:
			return consumeBytes(b, &m.Data), nil
		}
		return skip(num, typ, b)
	})
}

// --------------------------------------------------------------------------
// WindowResizeMessage
// --------------------------------------------------------------------------

// WindowResizeMessage reports a new terminal size
type WindowResizeMessage struct {
	Rows uint32 // field 1
	Cols uint32 // field 2
}

func (m *WindowResizeMessage) MarshalAppend(b []byte) ([]byte, error) {
	b = appendVarint(b, 1, uint64(m.Rows))
	b = appendVarint(b, 2, uint64(m.Cols))
	return b, nil
}

func (m *WindowResizeMessage) Unmarshal(b []byte) error {
	*m = WindowResizeMessage{}
	return walk("WindowResizeMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeUint32(b, &m.Rows), nil
		case num == 2 && typ == protowire.VarintType:
			return consumeUint32(b, &m.Cols), nil
		}
		return skip(num, typ, b)
	})
}

// --------------------------------------------------------------------------
// SetupConnectionRequest / SetupConnectionResponse
// --------------------------------------------------------------------------

// SetupConnectionRequest asks the guest to prepare a connection
type SetupConnectionRequest struct {
	Target     string            // field 1
	User       string            // field 2
	Env        map[string]string // field 3
	Argv       []string          // field 5
	WindowRows uint32            // field 6
	WindowCols uint32            // field 7
	NoPty      bool              // field 8
}

func (m *SetupConnectionRequest) MarshalAppend(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.Target)
	b = appendString(b, 2, m.User)

	for _, k := range slices.Sorted(maps.Keys(m.Env)) {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, m.Env[k])
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}

	// repeated strings keep empty elements
	for _, arg := range m.Argv {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, arg)
	}

	b = appendVarint(b, 6, uint64(m.WindowRows))
	b = appendVarint(b, 7, uint64(m.WindowCols))
	b = appendBool(b, 8, m.NoPty)
	return b, nil
}

func (m *SetupConnectionRequest) Unmarshal(b []byte) error {
	*m = SetupConnectionRequest{}
	return walk("SetupConnectionRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.Target), nil
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &m.User), nil
		case num == 3 && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var key, value string
			err := walk("SetupConnectionRequest.EnvEntry", entry, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch {
				case num == 1 && typ == protowire.BytesType:
					return consumeString(b, &key), nil
				case num == 2 && typ == protowire.BytesType:
					return consumeString(b, &value), nil
				}
				return skip(num, typ, b)
			})
			if err != nil {
				return n, err
			}
			if m.Env == nil {
				m.Env = make(map[string]string)
			}
			m.Env[key] = value
			return n, nil
		case num == 5 && typ == protowire.BytesType:
			var arg string
			n := consumeString(b, &arg)
			if n >= 0 {
				m.Argv = append(m.Argv, arg)
			}
			return n, nil
		case num == 6 && typ == protowire.VarintType:
			return consumeUint32(b, &m.WindowRows), nil
		case num == 7 && typ == protowire.VarintType:
			return consumeUint32(b, &m.WindowCols), nil
		case num == 8 && typ == protowire.VarintType:
			return consumeBool(b, &m.NoPty), nil
		}
		return skip(num, typ, b)
	})
}

// SetupConnectionResponse is the guest's answer to a SetupConnectionRequest
type SetupConnectionResponse struct {
	Status      ConnectionStatus // field 1
	Description string           // field 2
	Pid         int32            // field 3
}

func (m *SetupConnectionResponse) MarshalAppend(b []byte) ([]byte, error) {
	b = appendEnum(b, 1, int32(m.Status))
	b = appendString(b, 2, m.Description)
	b = appendEnum(b, 3, m.Pid)
	return b, nil
}

func (m *SetupConnectionResponse) Unmarshal(b []byte) error {
	*m = SetupConnectionResponse{}
	return walk("SetupConnectionResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeEnum(b, &m.Status), nil
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &m.Description), nil
		case num == 3 && typ == protowire.VarintType:
			return consumeEnum(b, &m.Pid), nil
		}
		return skip(num, typ, b)
	})
}

// --------------------------------------------------------------------------
// GuestMessage
// --------------------------------------------------------------------------

// GuestMessage is sent from vshd to vsh. Exactly one field is set.
type GuestMessage struct {
	DataMessage   *DataMessage   // field 1
	StatusMessage *StatusMessage // field 2
}

func (m *GuestMessage) MarshalAppend(b []byte) ([]byte, error) {
	switch {
	case m.DataMessage != nil:
		return appendMessage(b, 1, m.DataMessage)
	case m.StatusMessage != nil:
		return appendMessage(b, 2, m.StatusMessage)
	default:
		return b, ErrNoPayload
	}
}

// Unmarshal keeps the last oneof member on the wire, like other protobuf decoders
func (m *GuestMessage) Unmarshal(b []byte) error {
	*m = GuestMessage{}
	return walk("GuestMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			data := &DataMessage{}
			n, err := consumeMessage(b, data)
			*m = GuestMessage{DataMessage: data}
			return n, err
		case num == 2 && typ == protowire.BytesType:
			status := &StatusMessage{}
			n, err := consumeMessage(b, status)
			*m = GuestMessage{StatusMessage: status}
			return n, err
		}
		return skip(num, typ, b)
	})
}

// --------------------------------------------------------------------------
// HostMessage
// --------------------------------------------------------------------------

// HostMessage is sent from vsh to vshd. Exactly one field is set;
// Signal counts as set when HasSignal is true.
type HostMessage struct {
	DataMessage   *DataMessage         // field 1
	StatusMessage *StatusMessage       // field 2
	ResizeMessage *WindowResizeMessage // field 3
	Signal        Signal               // field 4
	HasSignal     bool
}

func (m *HostMessage) MarshalAppend(b []byte) ([]byte, error) {
	switch {
	case m.DataMessage != nil:
		return appendMessage(b, 1, m.DataMessage)
	case m.StatusMessage != nil:
		return appendMessage(b, 2, m.StatusMessage)
	case m.ResizeMessage != nil:
		return appendMessage(b, 3, m.ResizeMessage)
	case m.HasSignal:
		// a oneof member is written even when it holds the zero value
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(int64(m.Signal))), nil
	default:
		return b, ErrNoPayload
	}
}

func (m *HostMessage) Unmarshal(b []byte) error {
	*m = HostMessage{}
	return walk("HostMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			data := &DataMessage{}
			n, err := consumeMessage(b, data)
			*m = HostMessage{DataMessage: data}
			return n, err
		case num == 2 && typ == protowire.BytesType:
			status := &StatusMessage{}
			n, err := consumeMessage(b, status)
			*m = HostMessage{StatusMessage: status}
			return n, err
		case num == 3 && typ == protowire.BytesType:
			resize := &WindowResizeMessage{}
			n, err := consumeMessage(b, resize)
			*m = HostMessage{ResizeMessage: resize}
			return n, err
		case num == 4 && typ == protowire.VarintType:
			var sig Signal
			n := consumeEnum(b, &sig)
			*m = HostMessage{Signal: sig, HasSignal: true}
			return n, nil
		}
		return skip(num, typ, b)
	})
}

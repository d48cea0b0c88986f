package proto

// --------------------------------------------------------------------------
// Guest Message Factory Functions
// --------------------------------------------------------------------------

// NewGuestStatus creates a guest status message
func NewGuestStatus(status ConnectionStatus, description string, code int32) *GuestMessage {
	return &GuestMessage{
		StatusMessage: &StatusMessage{
			Status:      status,
			Description: description,
			Code:        code,
		},
	}
}

// NewGuestReady creates the READY message vshd sends first on every connection
func NewGuestReady(description string) *GuestMessage {
	return NewGuestStatus(ConnectionStatusReady, description, 0)
}

// NewGuestData creates a guest message carrying output of one stream
func NewGuestData(stream StdioStream, data []byte) *GuestMessage {
	return &GuestMessage{
		DataMessage: &DataMessage{Stream: stream, Data: data},
	}
}

// --------------------------------------------------------------------------
// Host Message Factory Functions
// --------------------------------------------------------------------------

// NewHostStatus creates a host status message
func NewHostStatus(status ConnectionStatus, description string, code int32) *HostMessage {
	return &HostMessage{
		StatusMessage: &StatusMessage{
			Status:      status,
			Description: description,
			Code:        code,
		},
	}
}

// NewHostExited creates the EXITED message a host sends before closing
func NewHostExited(code int32) *HostMessage {
	return NewHostStatus(ConnectionStatusExited, "", code)
}

// NewHostData creates a host message carrying input for one stream
func NewHostData(stream StdioStream, data []byte) *HostMessage {
	return &HostMessage{
		DataMessage: &DataMessage{Stream: stream, Data: data},
	}
}

// NewHostResize creates a window resize message
func NewHostResize(rows, cols uint32) *HostMessage {
	return &HostMessage{
		ResizeMessage: &WindowResizeMessage{Rows: rows, Cols: cols},
	}
}

// NewHostSignal creates a message forwarding sig
func NewHostSignal(sig Signal) *HostMessage {
	return &HostMessage{Signal: sig, HasSignal: true}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// StatusIs reports whether m is a status message with the given status
func (m *GuestMessage) StatusIs(status ConnectionStatus) bool {
	return m.StatusMessage != nil && m.StatusMessage.Status == status
}

// StatusIs reports whether m is a status message with the given status
func (m *HostMessage) StatusIs(status ConnectionStatus) bool {
	return m.StatusMessage != nil && m.StatusMessage.Status == status
}

// Kind names the set oneof member, used in log lines
func (m *HostMessage) Kind() string {
	switch {
	case m.DataMessage != nil:
		return "data"
	case m.StatusMessage != nil:
		return "status"
	case m.ResizeMessage != nil:
		return "resize"
	case m.HasSignal:
		return "signal"
	default:
		return "empty"
	}
}

package proto

import "strconv"

// ConnectionStatus is the state a StatusMessage reports
type ConnectionStatus int32

const (
	ConnectionStatusUnknown ConnectionStatus = 0
	ConnectionStatusReady   ConnectionStatus = 1
	ConnectionStatusExited  ConnectionStatus = 2
	ConnectionStatusFailed  ConnectionStatus = 3
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionStatusUnknown:
		return "UNKNOWN"
	case ConnectionStatusReady:
		return "READY"
	case ConnectionStatusExited:
		return "EXITED"
	case ConnectionStatusFailed:
		return "FAILED"
	default:
		return strconv.Itoa(int(s))
	}
}

// StdioStream identifies the standard stream a DataMessage belongs to
type StdioStream int32

const (
	StdioStreamInvalid StdioStream = 0
	StdioStreamStdin   StdioStream = 1
	StdioStreamStdout  StdioStream = 2
	StdioStreamStderr  StdioStream = 3
)

func (s StdioStream) String() string {
	switch s {
	case StdioStreamInvalid:
		return "INVALID"
	case StdioStreamStdin:
		return "STDIN"
	case StdioStreamStdout:
		return "STDOUT"
	case StdioStreamStderr:
		return "STDERR"
	default:
		return strconv.Itoa(int(s))
	}
}

// Signal is a signal the host forwards to the guest
type Signal int32

const (
	SignalUnknown Signal = 0
	SignalHup     Signal = 1
	SignalInt     Signal = 2
	SignalQuit    Signal = 3
	SignalTerm    Signal = 15
)

func (s Signal) String() string {
	switch s {
	case SignalUnknown:
		return "UNKNOWN"
	case SignalHup:
		return "HUP"
	case SignalInt:
		return "INT"
	case SignalQuit:
		return "QUIT"
	case SignalTerm:
		return "TERM"
	default:
		return strconv.Itoa(int(s))
	}
}

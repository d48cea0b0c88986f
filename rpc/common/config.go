package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

const (
	TransportUnix  = "unix"
	TransportVsock = "vsock"
)

// TransportConfig selects the socket family and the address to listen on or dial
type TransportConfig struct {
	// Kind is either TransportUnix or TransportVsock
	Kind string

	// Endpoint is the socket path (unix only)
	Endpoint string

	// Port is the vsock port (vsock only)
	Port uint32

	// CID is the context id to dial (vsock clients only)
	CID uint32
}

// Validate checks that the fields required by Kind are set
func (c *TransportConfig) Validate() error {
	switch c.Kind {
	case TransportUnix:
		if c.Endpoint == "" {
			return errors.New("unix transport requires an endpoint")
		}
	case TransportVsock:
		if c.Port == 0 {
			return errors.New("vsock transport requires a port")
		}
	default:
		return fmt.Errorf("invalid transport %q. must be one of unix, vsock", c.Kind)
	}
	return nil
}

// Address renders the configured address for log lines
func (c *TransportConfig) Address() string {
	if c.Kind == TransportVsock {
		return fmt.Sprintf("vsock://%d:%d", c.CID, c.Port)
	}
	return "unix://" + c.Endpoint
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the vshd guest service
type ServerConfig struct {
	Transport TransportConfig

	// MaxConnections bounds the number of connections handled at once
	MaxConnections int

	// TimeoutSecond bounds sending one frame to a peer, 0 disables it
	TimeoutSecond int64

	// ReadyDescription is sent in the READY status of every connection
	ReadyDescription string

	// MetricsEndpoint is the http address serving Prometheus metrics, empty disables it
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// Timeout returns TimeoutSecond as a duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Transport")
	addField("Type", c.Transport.Kind)
	addField("Address", c.Transport.Address())

	addSection("Guest Service")
	addField("Max Connections", strconv.Itoa(c.MaxConnections))
	addField("Send Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Ready Description", strconv.Quote(c.ReadyDescription))

	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of the vsh host client
type ClientConfig struct {
	Transport TransportConfig

	// TimeoutSecond bounds dialing and every frame operation, 0 disables it
	TimeoutSecond int

	// RetryCount is the number of dial attempts
	RetryCount int
}

// Timeout returns TimeoutSecond as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(max(1, c.RetryCount)))

	addSection("Transport")
	addField("Type", c.Transport.Kind)
	addField("Address", c.Transport.Address())

	return sb.String()
}

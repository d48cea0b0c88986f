package util

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
	"github.com/vmtools/vsh/rpc/transport/unix"
	"github.com/vmtools/vsh/rpc/transport/vsock"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read VSH_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("vsh")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupTransportFlags adds the address flags shared by serve and connect
func SetupTransportFlags(cmd *cobra.Command, defaultPort uint32) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "/tmp/vsh.sock", WrapString("Socket path (unix transport only)"))

	key = "port"
	cmd.PersistentFlags().Uint32(key, defaultPort, WrapString("Port (vsock transport only)"))
}

// GetTransportConfig reads the transport flags from viper
func GetTransportConfig() common.TransportConfig {
	return common.TransportConfig{
		Kind:     viper.GetString("transport"),
		Endpoint: viper.GetString("endpoint"),
		Port:     viper.GetUint32("port"),
		CID:      viper.GetUint32("cid"),
	}
}

// GetServerTransport creates the configured server transport
func GetServerTransport(r reactor.IRegistrar) (transport.IServerTransport, error) {
	switch viper.GetString("transport") {
	case common.TransportUnix:
		return unix.NewUnixServerTransport(r), nil
	case common.TransportVsock:
		return vsock.NewVsockServerTransport(r), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetClientTransport creates the configured client transport
func GetClientTransport(r reactor.IRegistrar) (transport.IClientTransport, error) {
	switch viper.GetString("transport") {
	case common.TransportUnix:
		return unix.NewUnixClientTransport(r), nil
	case common.TransportVsock:
		return vsock.NewVsockClientTransport(r), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// StartReactor creates the reactor and runs its loop until ctx is done or the
// returned stop function is called. stop waits for the loop and closes the reactor.
func StartReactor(ctx context.Context) (reactor.IReactor, func(), error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			reactor.Logger.Errorf("Reactor stopped: %v", err)
		}
	}()

	return r, func() {
		cancel()
		<-done
		_ = r.Close()
	}, nil
}

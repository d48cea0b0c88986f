package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmtools/vsh/cmd/connect"
	"github.com/vmtools/vsh/cmd/serve"
	"github.com/vmtools/vsh/cmd/util"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/wire"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vsh",
		Short: "shell transport between a virtual machine and its host",
		Long: fmt.Sprintf(`vsh (v%s)

Connects a host to a virtual machine guest over vsock (or a unix socket)
and exchanges length-prefixed protobuf messages with vshd in the guest.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vsh",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vsh v%s (max frame size %d bytes)\n", Version, wire.MaxFrameSize)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, common.TransportVsock, util.WrapString("transport to use (unix, vsock)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

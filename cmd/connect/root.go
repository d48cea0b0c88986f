package connect

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vmtools/vsh/cmd/util"
	"github.com/vmtools/vsh/rpc/client"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/transport"
)

var (
	connectCmdConfig = &common.ClientConfig{}

	// ConnectCmd represents the connect command group
	ConnectCmd = &cobra.Command{
		Use:               "connect",
		Short:             "Connect to vshd and complete the handshake",
		Long:              `Connect to a running vshd, wait for its READY status and exchange EXITED on the way out. The configuration can be set via command line flags or environment variables (e.g. VSH_CID=3)`,
		PersistentPreRunE: processConfig,
		RunE:              runConnect,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	ConnectCmd.AddCommand(perfTestCmd)

	// Add flags
	util.SetupTransportFlags(ConnectCmd, 5000)

	key := "cid"
	ConnectCmd.PersistentFlags().Uint32(key, 3, util.WrapString("Context id of the guest (vsock transport only)"))

	key = "timeout"
	ConnectCmd.PersistentFlags().Int(key, 5, util.WrapString("The timeout in seconds for dialing and for every message (0 to disable)"))

	key = "retries"
	ConnectCmd.PersistentFlags().Int(key, 3, util.WrapString("How many times to try dialing the guest"))

	key = "hold"
	ConnectCmd.Flags().Bool(key, false, util.WrapString("Keep the connection open until interrupted"))
}

// processConfig reads the client configuration from the flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	connectCmdConfig.Transport = util.GetTransportConfig()
	connectCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	connectCmdConfig.RetryCount = viper.GetInt("retries")

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}
	return connectCmdConfig.Transport.Validate()
}

// runConnect performs a single session
func runConnect(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, stopReactor, err := clientTransport()
	if err != nil {
		return err
	}
	defer stopReactor()

	c := client.NewClient(*connectCmdConfig, t)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			client.Logger.Warningf("Close: %v", err)
		}
	}()

	status, err := c.WaitReady(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", status.Status, status.Description)

	if viper.GetBool("hold") {
		<-ctx.Done()
	}
	return nil
}

// clientTransport starts a reactor and returns the configured transport on it
func clientTransport() (transport.IClientTransport, func(), error) {
	r, stopReactor, err := util.StartReactor(context.Background())
	if err != nil {
		return nil, nil, err
	}

	t, err := util.GetClientTransport(r)
	if err != nil {
		stopReactor()
		return nil, nil, err
	}
	return t, stopReactor, nil
}

package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/vmtools/vsh/cmd/util"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/server"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start vshd, the guest side service",
		Long:    `Start vshd with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VSH_<flag> (e.g. VSH_MAX_CONNECTIONS=16)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupTransportFlags(ServeCmd, 5000)

	key := "max-connections"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("How many connections are handled at the same time. Further connections wait until a handler is free"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for sending one message to the host (0 to disable)"))

	key = "ready-description"
	ServeCmd.PersistentFlags().String(key, "vsh ready", cmdUtil.WrapString("Description sent with the READY status of every connection"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address serving Prometheus metrics on /metrics (e.g. localhost:9100, empty to disable)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Transport = cmdUtil.GetTransportConfig()
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.ReadyDescription = viper.GetString("ready-description")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	return serveCmdConfig.Transport.Validate()
}

// run starts vshd and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, stopReactor, err := cmdUtil.StartReactor(context.Background())
	if err != nil {
		return err
	}
	defer stopReactor()

	t, err := cmdUtil.GetServerTransport(r)
	if err != nil {
		return err
	}

	return server.NewServer(*serveCmdConfig, t).Serve(ctx)
}

package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/scallionDB/cmd/util"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the scallionDB server",
		Long:    `Start the scallionDB server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SCALLION_<flag> (e.g. SCALLION_SAVE_LIMIT=20)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which clients connect (e.g. 0.0.0.0:5555 for tcp, /tmp/scallion.sock for unix)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, defaults.DataDir, cmdUtil.WrapString("Directory where trees are persisted as <name>.tree files"))

	key = "skip-load"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Do not load the persisted trees at startup"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, defaults.Workers, cmdUtil.WrapString("Number of workers executing statements"))

	key = "heartbeat-interval-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.HeartbeatIntervalMs, cmdUtil.WrapString("Interval in milliseconds between heartbeats of the broker and the workers"))

	key = "heartbeat-liveness"
	ServeCmd.PersistentFlags().Int(key, defaults.HeartbeatLiveness, cmdUtil.WrapString("Number of missed heartbeats after which a worker is considered dead"))

	key = "expected-performance-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.ExpectedPerformanceMs, cmdUtil.WrapString("Deadline in milliseconds for requests that do not carry their own timeout"))

	key = "save-limit"
	ServeCmd.PersistentFlags().Int(key, defaults.SaveLimit, cmdUtil.WrapString("Number of writes on a tree after which it is persisted"))

	key = "reconnect-initial-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.ReconnectInitialMs, cmdUtil.WrapString("Initial backoff in milliseconds of a worker that lost the broker"))

	key = "reconnect-max-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.ReconnectMaxMs, cmdUtil.WrapString("Maximum backoff in milliseconds, a worker exceeding it terminates"))

	key = "chunk-size"
	ServeCmd.PersistentFlags().Int(key, defaults.ChunkSize, cmdUtil.WrapString("Size in bytes after which a streamed result is flushed to the client"))

	key = "stream-pause-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.StreamPauseMs, cmdUtil.WrapString("Pause in milliseconds between two streamed chunks"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP admin endpoint with metrics and status (e.g. 127.0.0.1:8080), empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.SkipLoad = viper.GetBool("skip-load")
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.HeartbeatIntervalMs = viper.GetInt64("heartbeat-interval-ms")
	serveCmdConfig.HeartbeatLiveness = viper.GetInt("heartbeat-liveness")
	serveCmdConfig.ExpectedPerformanceMs = viper.GetInt64("expected-performance-ms")
	serveCmdConfig.SaveLimit = viper.GetInt("save-limit")
	serveCmdConfig.ReconnectInitialMs = viper.GetInt64("reconnect-initial-ms")
	serveCmdConfig.ReconnectMaxMs = viper.GetInt64("reconnect-max-ms")
	serveCmdConfig.ChunkSize = viper.GetInt("chunk-size")
	serveCmdConfig.StreamPauseMs = viper.GetInt64("stream-pause-ms")
	serveCmdConfig.AdminEndpoint = viper.GetString("admin-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return serveCmdConfig.Validate()
}

// run starts the scallionDB server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	st, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}
	ct, err := cmdUtil.GetClientTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(
		*serveCmdConfig,
		st,
		ct,
	)

	return serv.Serve(ctx)
}

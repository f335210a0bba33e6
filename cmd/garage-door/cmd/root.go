package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/service/server"
	"github.com/oshokin/garage-door/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string

	// rootCmd represents the base command for running the door controller.
	rootCmd = &cobra.Command{
		Use:   "garage-door [listen-address]",
		Short: "Run the garage door controller and its gRPC API.",
		Long: `Starts the garage door controller that drives the relay node and watches its sensors.

Every open or close request toggles the relay and starts a watch session that polls the
sensors until the door reaches the target or the maximum duration runs out, in which case
the door is reported as stopped and obstructed.

The gRPC API listens on the specified address or on the port of server_addr from the
configuration file. HomeKit, MQTT and InfluxDB adapters are started when enabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Flush buffered log entries on exit.
			defer logger.Sync()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the garage-door CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")
}

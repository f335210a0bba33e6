package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/service/client"
	"github.com/oshokin/garage-door/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from the configuration file.
	serverAddress string

	// rootCmd groups the door commands.
	rootCmd = &cobra.Command{
		Use:   "garage-door-ctl",
		Short: "Open, close or query the garage door.",
		Long: `Talks to a running garage-door server over gRPC.

The server address is loaded from the configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// newActionCommand creates a subcommand sending action to the server.
func newActionCommand(action client.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Flush buffered log entries on exit.
			defer logger.Sync()

			return client.Run(ctx, &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Action:        action,
			})
		},
	}
}

// Execute runs the garage-door-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "server address override (host:port)")

	rootCmd.AddCommand(
		newActionCommand(client.ActionOpen, "Open the door and wait for the relay command."),
		newActionCommand(client.ActionClose, "Close the door and wait for the relay command."),
		newActionCommand(client.ActionStatus, "Read the sensors and print the door state."),
	)
}

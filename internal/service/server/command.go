package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/garage-door/internal/api/grpc/door"
	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/version"
)

// Options controls the garage-door server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// LogLevel overrides the level from the settings file when not empty.
	LogLevel string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the door controller with its adapters and serves the gRPC API
// until the context is canceled or the server stops.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "garage-door")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// The command line level wins over the settings file.
	level := settings.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	if err = logger.ApplyLevel(level); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	logger.InfoKV(ctx, "Starting garage door controller", append(version.Fields(), "door", settings.Door.Name)...)

	// Build the controller and the enabled adapters.
	app, err := newComponents(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise components: %w", err)
	}

	defer app.close(ctx)

	// Seed the state so the first snapshot reflects the sensors.
	app.seed(ctx)

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with the door service.
	grpcServer := grpc.NewServer()
	api.RegisterDoorServiceServer(grpcServer, api.NewServer(app.controller))

	logger.InfoKV(ctx, "Door server listening", "listen_address", listenAddress, "node_url", settings.Door.NodeURL)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if app.homekit != nil {
		group.Go(func() error {
			return app.homekit.Run(groupCtx, settings.HomeKit)
		})
	}

	err = group.Wait()

	logger.Info(ctx, "GRPC server stopped")

	return err
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}

package server

import (
	"context"
	"fmt"

	"github.com/oshokin/garage-door/internal/bridge/mqtt"
	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/homekit"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/node"
	"github.com/oshokin/garage-door/internal/service/controller"
	"github.com/oshokin/garage-door/internal/telemetry/influx"
)

// closer releases an adapter on shutdown.
type closer struct {
	name  string
	close func() error
}

// components is the controller together with its enabled adapters.
type components struct {
	// controller owns the door state.
	controller *controller.Controller
	// homekit is set when the accessory is enabled and must be run.
	homekit *homekit.Accessory
	// closers are released in reverse order.
	closers []closer
}

// newComponents builds the node client, the controller and every enabled
// adapter. Adapters are registered as observers of the controller.
func newComponents(ctx context.Context, settings *config.Config) (*components, error) {
	nodeClient, err := node.New(settings.Door.NodeURL, node.WithCallTimeout(settings.Timeout))
	if err != nil {
		return nil, fmt.Errorf("create node client: %w", err)
	}

	issuer := controller.NewIssuer(nodeClient, settings.Door.CommandAttempts)

	ctrl, err := controller.New(
		ctx,
		nodeClient,
		issuer,
		controller.WithTiming(settings.Door.RefreshInterval, settings.Door.MaximumDuration),
		controller.WithRefetchOnTimeout(settings.Door.RefetchOnTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	app := &components{controller: ctrl}

	if err = app.attachAdapters(ctx, settings); err != nil {
		app.close(ctx)

		return nil, err
	}

	return app, nil
}

// attachAdapters connects the enabled adapters and registers them as observers.
func (c *components) attachAdapters(ctx context.Context, settings *config.Config) error {
	if settings.MQTT.Enabled {
		bridge, err := mqtt.Dial(ctx, settings.MQTT, c.controller)
		if err != nil {
			return fmt.Errorf("connect mqtt bridge: %w", err)
		}

		c.controller.AddObserver(bridge)
		c.closers = append(c.closers, closer{name: "mqtt", close: bridge.Close})
	}

	if settings.InfluxDB.Enabled {
		recorder, err := influx.Connect(ctx, settings.InfluxDB, settings.Door.Name)
		if err != nil {
			return fmt.Errorf("connect influxdb: %w", err)
		}

		c.controller.AddObserver(recorder)
		c.closers = append(c.closers, closer{name: "influxdb", close: recorder.Close})
	}

	if settings.HomeKit.Enabled {
		c.homekit = homekit.New(ctx, settings.Door.Name, settings.HomeKit, c.controller)
		c.controller.AddObserver(c.homekit)
	}

	return nil
}

// seed reads the sensors once. A failure leaves the state unknown.
func (c *components) seed(ctx context.Context) {
	state, err := c.controller.Current(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Initial door state unavailable", "error", err)
		return
	}

	logger.InfoKV(ctx, "Initial door state", "current", state)
}

// close stops the controller and releases the adapters in reverse order.
func (c *components) close(ctx context.Context) {
	c.controller.Close()

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].close(); err != nil {
			logger.WarnKV(ctx, "Close adapter failed", "adapter", c.closers[i].name, "error", err)
		}
	}

	c.closers = nil
}

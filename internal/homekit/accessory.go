package homekit

import (
	"context"
	"fmt"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
)

// Controller is the part of the door controller the accessory drives.
type Controller interface {
	SetTarget(ctx context.Context, target door.State) error
	Current(ctx context.Context) (door.State, error)
}

// Accessory is a garage door opener accessory. It implements
// controller.Observer and keeps its characteristics in sync with the
// controller.
type Accessory struct {
	ctx        context.Context //nolint:containedctx // HomeKit callbacks carry no context.
	controller Controller
	accessory  *accessory.Accessory
	opener     *service.GarageDoorOpener
}

// New creates the accessory and registers the HomeKit callbacks. The
// characteristics start as a closed door with a closed target.
func New(ctx context.Context, name string, cfg config.HomeKitConfig, controller Controller) *Accessory {
	acc := accessory.New(accessory.Info{
		Name:         name,
		Manufacturer: cfg.Manufacturer,
		Model:        cfg.Model,
		SerialNumber: cfg.SerialNumber,
	}, accessory.TypeGarageDoorOpener)

	opener := service.NewGarageDoorOpener()
	opener.CurrentDoorState.SetValue(characteristic.CurrentDoorStateClosed)
	opener.TargetDoorState.SetValue(characteristic.TargetDoorStateClosed)
	opener.ObstructionDetected.SetValue(false)
	acc.AddService(opener.Service)

	a := &Accessory{
		ctx:        logger.WithName(ctx, "homekit"),
		controller: controller,
		accessory:  acc,
		opener:     opener,
	}

	opener.TargetDoorState.OnValueRemoteUpdate(a.handleTargetUpdate)
	opener.CurrentDoorState.OnValueRemoteGet(a.handleCurrentGet)

	return a
}

// Run publishes the accessory on the local network until ctx is done.
func (a *Accessory) Run(ctx context.Context, cfg config.HomeKitConfig) error {
	transport, err := hc.NewIPTransport(hc.Config{
		Pin:         cfg.Pin,
		Port:        cfg.Port,
		StoragePath: cfg.StoragePath,
	}, a.accessory)
	if err != nil {
		return fmt.Errorf("create homekit transport: %w", err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		transport.Start()
	}()

	logger.InfoKV(a.ctx, "HomeKit accessory published", "port", cfg.Port, "storage", cfg.StoragePath)

	<-ctx.Done()
	<-transport.Stop()
	<-done

	logger.Info(a.ctx, "HomeKit accessory stopped")

	return nil
}

// CurrentChanged pushes the current state. Unknown has no HomeKit value and is skipped.
func (a *Accessory) CurrentChanged(state door.State) {
	if state == door.Unknown {
		return
	}

	a.opener.CurrentDoorState.SetValue(int(state))
}

// TargetChanged pushes the target state.
func (a *Accessory) TargetChanged(target door.State) {
	if !door.ValidTarget(target) {
		return
	}

	a.opener.TargetDoorState.SetValue(int(target))
}

// ObstructionChanged pushes the obstruction flag.
func (a *Accessory) ObstructionChanged(obstructed bool) {
	a.opener.ObstructionDetected.SetValue(obstructed)
}

// handleTargetUpdate forwards a target chosen in the Home app.
func (a *Accessory) handleTargetUpdate(value int) {
	target := door.State(value)
	if !door.ValidTarget(target) {
		logger.WarnKV(a.ctx, "Ignoring invalid target from HomeKit", "value", value)
		return
	}

	logger.InfoKV(a.ctx, "Target requested over HomeKit", "target", target)

	go func() {
		if err := a.controller.SetTarget(a.ctx, target); err != nil {
			logger.ErrorKV(a.ctx, "Set target from HomeKit failed", "target", target, "error", err)
		}
	}()
}

// handleCurrentGet answers a read of the current state with a fresh
// reading, falling back to the last known value.
func (a *Accessory) handleCurrentGet() int {
	state, err := a.controller.Current(a.ctx)
	if err != nil {
		logger.WarnKV(a.ctx, "Current state read failed", "error", err)
		return a.opener.CurrentDoorState.GetValue()
	}

	if state == door.Unknown {
		return a.opener.CurrentDoorState.GetValue()
	}

	return int(state)
}

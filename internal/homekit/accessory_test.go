package homekit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brutella/hc/characteristic"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
)

type fakeController struct {
	mu      sync.Mutex
	current door.State
	err     error
	targets chan door.State
}

func newFakeController() *fakeController {
	return &fakeController{current: door.Closed, targets: make(chan door.State, 4)}
}

func (f *fakeController) SetTarget(_ context.Context, target door.State) error {
	f.targets <- target
	return nil
}

func (f *fakeController) Current(context.Context) (door.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current, f.err
}

func newTestAccessory(controller Controller) *Accessory {
	return New(context.Background(), "Garage Door", config.HomeKitConfig{
		Manufacturer: "oshokin",
		Model:        "garage-door",
		SerialNumber: "1",
	}, controller)
}

func TestAccessory_InitialValues(t *testing.T) {
	t.Parallel()

	acc := newTestAccessory(newFakeController())

	require.Equal(t, characteristic.CurrentDoorStateClosed, acc.opener.CurrentDoorState.GetValue())
	require.Equal(t, characteristic.TargetDoorStateClosed, acc.opener.TargetDoorState.GetValue())
	require.False(t, acc.opener.ObstructionDetected.GetValue())
}

func TestAccessory_StateValuesMatchCharacteristic(t *testing.T) {
	t.Parallel()

	require.Equal(t, characteristic.CurrentDoorStateOpen, int(door.Opened))
	require.Equal(t, characteristic.CurrentDoorStateClosed, int(door.Closed))
	require.Equal(t, characteristic.CurrentDoorStateOpening, int(door.Opening))
	require.Equal(t, characteristic.CurrentDoorStateClosing, int(door.Closing))
	require.Equal(t, characteristic.CurrentDoorStateStopped, int(door.Stopped))
	require.Equal(t, characteristic.TargetDoorStateOpen, int(door.Opened))
	require.Equal(t, characteristic.TargetDoorStateClosed, int(door.Closed))
}

func TestAccessory_ObserverPushesValues(t *testing.T) {
	t.Parallel()

	acc := newTestAccessory(newFakeController())

	acc.TargetChanged(door.Opened)
	acc.CurrentChanged(door.Opening)
	acc.ObstructionChanged(true)

	require.Equal(t, characteristic.TargetDoorStateOpen, acc.opener.TargetDoorState.GetValue())
	require.Equal(t, characteristic.CurrentDoorStateOpening, acc.opener.CurrentDoorState.GetValue())
	require.True(t, acc.opener.ObstructionDetected.GetValue())

	acc.CurrentChanged(door.Unknown)
	acc.TargetChanged(door.Unknown)

	require.Equal(t, characteristic.CurrentDoorStateOpening, acc.opener.CurrentDoorState.GetValue())
	require.Equal(t, characteristic.TargetDoorStateOpen, acc.opener.TargetDoorState.GetValue())
}

func TestAccessory_TargetUpdate(t *testing.T) {
	t.Parallel()

	controller := newFakeController()
	acc := newTestAccessory(controller)

	acc.handleTargetUpdate(characteristic.TargetDoorStateOpen)

	select {
	case target := <-controller.targets:
		require.Equal(t, door.Opened, target)
	case <-time.After(time.Second):
		t.Fatal("target was not forwarded")
	}

	acc.handleTargetUpdate(int(door.Stopped))

	require.Never(t, func() bool { return len(controller.targets) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestAccessory_CurrentGet(t *testing.T) {
	t.Parallel()

	controller := newFakeController()
	acc := newTestAccessory(controller)

	controller.current = door.Opened
	require.Equal(t, characteristic.CurrentDoorStateOpen, acc.handleCurrentGet())

	acc.CurrentChanged(door.Closing)

	controller.mu.Lock()
	controller.err = errors.New("node unreachable")
	controller.mu.Unlock()

	require.Equal(t, characteristic.CurrentDoorStateClosing, acc.handleCurrentGet())
}

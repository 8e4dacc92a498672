package systems

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cameraFixture struct {
	bus    *core.EventBus
	input  *core.Input
	camera *components.Camera
	system *CameraSystem
}

func newCameraFixture(t *testing.T) *cameraFixture {
	t.Helper()
	f := &cameraFixture{bus: core.NewEventBus()}
	f.input = core.NewInput(f.bus)
	f.camera = components.NewCamera(math.NewVec3(0, 1, -5), 45, 16.0/9.0)
	f.camera.ConsumeMoved()

	config := DefaultCameraSystemConfig()
	var err error
	f.system, err = NewCameraSystem(&config, f.input, f.bus, f.camera)
	require.NoError(t, err)
	return f
}

func TestCameraSystemIdle(t *testing.T) {
	f := newCameraFixture(t)
	assert.False(t, f.system.Update(1.0/120))
	assert.Same(t, f.camera, f.system.GetDefault())
}

func TestCameraSystemKeyboardMove(t *testing.T) {
	f := newCameraFixture(t)
	start := f.camera.Position
	dir := f.camera.Direction

	f.input.ProcessKey(core.KEY_W, true)
	require.True(t, f.system.Update(1.0/120))
	assert.True(t, f.camera.Position.Compare(start.Add(dir.MulScalar(0.05)), 1e-6))

	f.input.ProcessKey(core.KEY_W, false)
	f.input.ProcessKey(core.KEY_D, true)
	before := f.camera.Position
	require.True(t, f.system.Update(1.0/120))
	assert.True(t, f.camera.Position.Compare(before.Add(f.camera.Right.MulScalar(0.05)), 1e-6))
}

func TestCameraSystemRightDragRotates(t *testing.T) {
	f := newCameraFixture(t)
	yaw := f.camera.Yaw

	f.input.ProcessButton(core.BUTTON_RIGHT, true)
	f.input.ProcessMouseMove(10, 0)
	require.True(t, f.system.Update(1.0/120))
	assert.InDelta(t, yaw-10*0.0025, f.camera.Yaw, 1e-6)
}

func TestCameraSystemWheelZooms(t *testing.T) {
	f := newCameraFixture(t)

	f.input.ProcessMouseWheel(1)
	require.True(t, f.system.Update(1.0/120))
	assert.InDelta(t, 45-WheelUnitsPerNotch*0.05, f.camera.FOV, 1e-4)

	// The scroll is consumed by the frame that saw it.
	assert.False(t, f.system.Update(1.0/120))
}

func TestCameraSystemFollowsResize(t *testing.T) {
	f := newCameraFixture(t)

	f.bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 1600, WindowHeight: 800},
	})
	assert.Equal(t, float32(2), f.camera.AspectRatio)
	assert.True(t, f.system.Update(1.0/120))
}

func TestCameraSystemShutdownStopsListening(t *testing.T) {
	f := newCameraFixture(t)
	require.NoError(t, f.system.Shutdown())

	f.input.ProcessMouseWheel(3)
	assert.False(t, f.system.Update(1.0/120))
	assert.Equal(t, float32(45), f.camera.FOV)
}

func TestNewCameraSystemRequiresDependencies(t *testing.T) {
	_, err := NewCameraSystem(nil, nil, nil, nil)
	assert.Error(t, err)
}

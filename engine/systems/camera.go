package systems

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
)

// WheelUnitsPerNotch converts one wheel notch into zoom units.
const WheelUnitsPerNotch = 120

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/** @brief World units per frame while a movement key is held. */
	MoveSpeed float32 `toml:"move_speed"`
	/** @brief World units per pixel of left-drag. */
	PanSpeed float32 `toml:"pan_speed"`
	/** @brief Radians per pixel of right-drag. */
	RotateSpeed float32 `toml:"rotate_speed"`
	/** @brief Degrees of field of view per wheel unit. */
	ZoomSpeed float32 `toml:"zoom_speed"`
}

func DefaultCameraSystemConfig() CameraSystemConfig {
	return CameraSystemConfig{
		MoveSpeed:   0.05,
		PanSpeed:    0.005,
		RotateSpeed: 0.0025,
		ZoomSpeed:   0.05,
	}
}

// CameraSystem turns keyboard and mouse state into camera motion once per frame.
type CameraSystem struct {
	Config *CameraSystemConfig
	input  *core.Input
	bus    *core.EventBus
	// The camera every frame renders through.
	DefaultCamera *components.Camera

	scroll int32
}

func NewCameraSystem(config *CameraSystemConfig, input *core.Input, bus *core.EventBus, camera *components.Camera) (*CameraSystem, error) {
	if config == nil || input == nil || bus == nil || camera == nil {
		err := fmt.Errorf("func NewCameraSystem - config, input, bus and camera are required")
		core.LogError(err.Error())
		return nil, err
	}
	cs := &CameraSystem{
		Config:        config,
		input:         input,
		bus:           bus,
		DefaultCamera: camera,
	}
	bus.Register(core.EVENT_CODE_MOUSE_WHEEL, cs, cs.onWheel)
	bus.Register(core.EVENT_CODE_RESIZED, cs, cs.onResized)
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	cs.bus.Unregister(core.EVENT_CODE_MOUSE_WHEEL, cs)
	cs.bus.Unregister(core.EVENT_CODE_RESIZED, cs)
	return nil
}

/**
 * @brief Gets a pointer to the default camera.
 *
 * @return A pointer to the default camera.
 */
func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}

// Update applies this frame's input and reports whether the camera moved
// since the previous call.
func (cs *CameraSystem) Update(deltaTime float64) bool {
	c := cs.DefaultCamera
	speed := cs.Config.MoveSpeed

	movement := math.NewVec3Zero()
	if cs.input.IsKeyDown(core.KEY_W) {
		movement = movement.Add(c.Direction.MulScalar(speed))
	}
	if cs.input.IsKeyDown(core.KEY_S) {
		movement = movement.Sub(c.Direction.MulScalar(speed))
	}
	if cs.input.IsKeyDown(core.KEY_A) {
		movement = movement.Sub(c.Right.MulScalar(speed))
	}
	if cs.input.IsKeyDown(core.KEY_D) {
		movement = movement.Add(c.Right.MulScalar(speed))
	}

	// Dragging moves the world with the cursor.
	dx, dy := cs.input.MouseDelta()
	offsetX := float32(-dx)
	offsetY := float32(dy)
	if cs.input.IsButtonDown(core.BUTTON_LEFT) {
		movement = movement.Add(c.Right.MulScalar(cs.Config.PanSpeed * offsetX))
		movement = movement.Add(c.Up.MulScalar(cs.Config.PanSpeed * offsetY))
	}
	if cs.input.IsButtonDown(core.BUTTON_RIGHT) {
		c.Rotate(offsetX*cs.Config.RotateSpeed, offsetY*cs.Config.RotateSpeed)
	}
	c.Move(movement)

	if cs.scroll != 0 {
		c.Zoom(float32(cs.scroll*WheelUnitsPerNotch) * cs.Config.ZoomSpeed)
		cs.scroll = 0
	}
	return c.ConsumeMoved()
}

func (cs *CameraSystem) onWheel(context core.EventContext) bool {
	if me, ok := context.Data.(*core.MouseEvent); ok {
		cs.scroll += int32(me.Scroll)
	}
	return false
}

func (cs *CameraSystem) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	cs.DefaultCamera.SetAspect(se.WindowWidth, se.WindowHeight)
	return false
}

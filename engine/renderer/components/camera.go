package components

import (
	"github.com/chewxy/math32"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

const (
	// Pitch is kept within one radian of the horizon.
	CameraPitchLimit float32 = 1.0
	CameraMinFOV     float32 = 15.0
	CameraMaxFOV     float32 = 130.0
)

/**
 * @brief A perspective camera driven by yaw and pitch. It keeps its view and
 * projection up to date and raises Moved whenever either changes.
 */
type Camera struct {
	/** @brief World position of the eye. */
	Position math.Vec3
	/** @brief Unit look direction, derived from Yaw and Pitch. */
	Direction math.Vec3
	/** @brief Screen right in world space. */
	Right math.Vec3
	/** @brief Screen up in world space. */
	Up math.Vec3

	Yaw   float32
	Pitch float32

	/** @brief Vertical field of view in degrees. */
	FOV         float32
	NearClip    float32
	FarClip     float32
	AspectRatio float32

	ViewMatrix math.Mat4
	Projection math.Mat4

	/** @brief Set whenever the view or projection changed. Cleared by ConsumeMoved. */
	Moved bool

	home math.Vec3
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

func NewCamera(position math.Vec3, fovDegrees, aspectRatio float32) *Camera {
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	c := &Camera{
		home:        position,
		FOV:         math.Clamp(fovDegrees, CameraMinFOV, CameraMaxFOV),
		NearClip:    0.1,
		FarClip:     100.0,
		AspectRatio: aspectRatio,
	}
	c.Reset()
	return c
}

// Reset puts the camera back where it was created, looking down +Z.
func (c *Camera) Reset() {
	c.Position = c.home
	c.Yaw = math.K_HALF_PI
	c.Pitch = 0
	c.updateBasis()
	c.rebuild()
}

// Move translates the eye by delta in world space.
func (c *Camera) Move(delta math.Vec3) {
	if delta == math.NewVec3Zero() {
		return
	}
	c.Position = c.Position.Add(delta)
	c.rebuild()
}

// Rotate adds to yaw and pitch, both in radians.
func (c *Camera) Rotate(yawDelta, pitchDelta float32) {
	if yawDelta == 0 && pitchDelta == 0 {
		return
	}
	c.Yaw += yawDelta
	c.Pitch = math.Clamp(c.Pitch+pitchDelta, -CameraPitchLimit, CameraPitchLimit)
	c.updateBasis()
	c.rebuild()
}

// Zoom narrows the field of view by delta degrees. Negative values widen it.
func (c *Camera) Zoom(delta float32) {
	if delta == 0 {
		return
	}
	c.FOV = math.Clamp(c.FOV-delta, CameraMinFOV, CameraMaxFOV)
	c.rebuild()
}

func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
	c.rebuild()
}

// Shared returns the camera block every draw reads.
func (c *Camera) Shared() metadata.SharedCameraData {
	return metadata.SharedCameraData{
		View:       c.ViewMatrix,
		Projection: c.Projection,
	}
}

// ConsumeMoved reports whether the camera changed since the last call.
func (c *Camera) ConsumeMoved() bool {
	moved := c.Moved
	c.Moved = false
	return moved
}

func (c *Camera) updateBasis() {
	cosPitch := math32.Cos(c.Pitch)
	c.Direction = math.NewVec3(
		math32.Cos(c.Yaw)*cosPitch,
		math32.Sin(c.Pitch),
		math32.Sin(c.Yaw)*cosPitch,
	).Normalize()
	c.Right = c.Direction.Cross(math.NewVec3Up()).Normalize()
	c.Up = c.Right.Cross(c.Direction).Normalize()
}

func (c *Camera) rebuild() {
	c.ViewMatrix = math.NewMat4LookAt(c.Position, c.Position.Add(c.Direction), math.NewVec3Up())
	c.Projection = math.NewMat4Perspective(math.DegToRad(c.FOV), c.AspectRatio, c.NearClip, c.FarClip)
	c.Moved = true
}

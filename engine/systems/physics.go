package systems

import (
	"encoding/binary"
	"errors"
	"fmt"
	m "math"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

const (
	// CubeObjectSize is one {Transform mat4, Time f32, pad [3]f32} block.
	CubeObjectSize = math.Mat4Size + 16

	CubeGravity   float32 = -3.2
	CubeFixedStep float32 = 0.030
)

var (
	CubeStartPosition = math.NewVec3(1.5, 0.5, 1.5)
	CubeResetPosition = math.NewVec3(1.0, 0.5, 1.0)
)

/**
 * @brief The simulated cube. Position and velocity are in world units.
 */
type Cube struct {
	Position math.Vec3
	Velocity math.Vec3
	Mass     float32
	// Magnitude of the next push. A negative value pushes with magnitude 1.
	ForceMagnitude    float32
	AffectedByGravity bool
	Simulating        bool
}

type PhysicsSystemConfig struct {
	Mesh     resources.Key
	Pipeline resources.Key
}

// PhysicsSystem steps the cube at a fixed rate and keeps its object resource current.
type PhysicsSystem struct {
	scene  Scene
	config PhysicsSystemConfig

	cube    Cube
	key     resources.Key
	pending resources.Pending
	elapsed float32
}

func NewPhysicsSystem(scene Scene, config PhysicsSystemConfig) (*PhysicsSystem, error) {
	if scene == nil {
		return nil, fmt.Errorf("func NewPhysicsSystem - scene is nil")
	}
	ps := &PhysicsSystem{
		scene:  scene,
		config: config,
		cube: Cube{
			Position:       CubeStartPosition,
			Mass:           1.0,
			ForceMagnitude: 1.0,
		},
	}
	key, err := scene.Table().CreateObjectResource(ps.objectData())
	if err != nil {
		return nil, err
	}
	ps.key = key
	return ps, nil
}

func (ps *PhysicsSystem) Cube() Cube {
	return ps.cube
}

func (ps *PhysicsSystem) ObjectKey() resources.Key {
	return ps.key
}

func (ps *PhysicsSystem) SetGravity(enabled bool) {
	ps.cube.AffectedByGravity = enabled
}

func (ps *PhysicsSystem) SetForceMagnitude(magnitude float32) {
	ps.cube.ForceMagnitude = magnitude
}

// SetMass changes the mass used by later pushes. The velocity already gained is kept.
func (ps *PhysicsSystem) SetMass(mass float32) error {
	if mass <= 0 || m.IsNaN(float64(mass)) || m.IsInf(float64(mass), 0) {
		return fmt.Errorf("cube mass must be a positive number, got %v", mass)
	}
	ps.cube.Mass = mass
	return nil
}

// Push adds an impulse along force and starts the simulation.
func (ps *PhysicsSystem) Push(force math.Vec3) {
	if force.LengthSquared() == 0 {
		return
	}
	magnitude := ps.cube.ForceMagnitude
	if magnitude < 0 {
		magnitude = 1
	}
	impulse := force.Normalize().MulScalar(magnitude / ps.cube.Mass)
	ps.cube.Velocity = ps.cube.Velocity.Add(impulse)
	ps.cube.Simulating = true
}

// Reset stops the simulation and parks the cube.
func (ps *PhysicsSystem) Reset() {
	ps.cube.Position = CubeResetPosition
	ps.cube.Velocity = math.NewVec3Zero()
	ps.cube.Simulating = false
	ps.pending.Request(resources.UPDATE_RESOURCE_DISCARD)
}

// Step advances the cube by one fixed step.
func (ps *PhysicsSystem) Step() {
	if !ps.cube.Simulating {
		return
	}
	if ps.cube.AffectedByGravity {
		ps.cube.Velocity.Y += CubeGravity * CubeFixedStep
	}
	ps.cube.Position = ps.cube.Position.Add(ps.cube.Velocity.MulScalar(CubeFixedStep))
	ps.pending.Request(resources.UPDATE_RESOURCE_DISCARD)
}

// Update steps the simulation, uploads the cube and queues its draw.
// elapsed is the time in seconds since the scene started.
func (ps *PhysicsSystem) Update(elapsed float64) error {
	ps.Step()
	ps.elapsed = float32(elapsed)
	updateErr := ps.pending.ApplyObject(ps.scene.Table(), ps.key, ps.objectData())
	if updateErr != nil {
		core.LogError("cube resource not updated: %s", updateErr)
	}
	return errors.Join(updateErr, ps.scene.PushDraw(ps.key, 0, ps.config.Mesh, ps.config.Pipeline))
}

func (ps *PhysicsSystem) objectData() []byte {
	b := make([]byte, 0, CubeObjectSize)
	b = math.NewMat4Translation(ps.cube.Position).AppendBytes(b)
	b = binary.LittleEndian.AppendUint32(b, m.Float32bits(ps.elapsed))
	// Pads the block to a 16-byte multiple.
	return append(b, make([]byte, 12)...)
}

func (ps *PhysicsSystem) Shutdown() error {
	if ps.key.IsZero() {
		return nil
	}
	if err := ps.scene.Table().ReleaseObjectResource(ps.key); err != nil {
		core.LogWarn("failed to release cube resource: %s", err)
		return err
	}
	ps.key = 0
	return nil
}

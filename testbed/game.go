package testbed

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vecsandbox/engine"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
)

// Colors handed out to vectors spawned from the keyboard, in order.
var palette = []math.Vec4{
	math.NewVec4(0.90, 0.30, 0.25, 1),
	math.NewVec4(0.30, 0.75, 0.35, 1),
	math.NewVec4(0.25, 0.50, 0.95, 1),
	math.NewVec4(0.95, 0.80, 0.20, 1),
	math.NewVec4(0.70, 0.40, 0.90, 1),
}

// Length of a vector spawned along the camera direction.
const spawnLength float32 = 2.0

/**
 * @brief Key bindings of the sandbox, on release:
 * V spawns a vector along the view, X removes the newest one,
 * P/M/C add, subtract and cross the two newest, K doubles the newest,
 * J projects the newest onto the one before, L projects it onto the XZ plane,
 * Space pushes the cube, G toggles gravity, R resets the cube,
 * Home resets the camera and F1 logs it.
 */
type SandboxGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera

	width  uint32
	height uint32

	// Vector IDs, oldest first.
	history []uuid.UUID
	spawned int
}

func NewSandboxGame(config *engine.ApplicationConfig) (*SandboxGame, error) {
	if config == nil {
		return nil, fmt.Errorf("func NewSandboxGame - config is nil")
	}
	sg := &SandboxGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	sg.FnInitialize = sg.Initialize
	sg.FnUpdate = sg.Update
	sg.FnOnResize = sg.OnResize
	sg.FnShutdown = sg.Shutdown
	return sg, nil
}

func (g *SandboxGame) Initialize() error {
	core.LogDebug("SandboxGame Initialize fn....")

	if g.SystemManager == nil || g.Input == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}
	state := g.State.(*gameState)
	state.WorldCamera = g.SystemManager.CameraSystem.GetDefault()

	physics := g.SystemManager.PhysicsSystem
	physics.SetGravity(g.ApplicationConfig.Scene.CubeGravity)
	physics.SetForceMagnitude(g.ApplicationConfig.Scene.CubeForce)
	if err := physics.SetMass(g.ApplicationConfig.Scene.CubeMass); err != nil {
		return err
	}

	for i, v := range g.ApplicationConfig.Vectors {
		start, end, color := v.Points()
		id, err := g.SystemManager.VectorSystem.Add(start, end, color)
		if err != nil {
			return fmt.Errorf("failed to add configured vector %d: %w", i, err)
		}
		state.history = append(state.history, id)
	}
	core.LogInfo("sandbox ready with %d vectors", len(state.history))
	return nil
}

func (g *SandboxGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	vectors := g.SystemManager.VectorSystem
	physics := g.SystemManager.PhysicsSystem

	if g.released(core.KEY_V) {
		dir := state.WorldCamera.Direction.MulScalar(spawnLength)
		color := palette[state.spawned%len(palette)]
		if id, err := vectors.Add(math.NewVec3Zero(), dir, color); err != nil {
			core.LogWarn("cannot spawn a vector: %s", err)
		} else {
			state.spawned++
			state.history = append(state.history, id)
		}
	}
	if g.released(core.KEY_X) && len(state.history) > 0 {
		last := state.history[len(state.history)-1]
		state.history = state.history[:len(state.history)-1]
		if err := vectors.Remove(last); err != nil {
			core.LogWarn("cannot remove vector %s: %s", last, err)
		}
	}

	if g.released(core.KEY_P) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_ADD})
	}
	if g.released(core.KEY_M) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_SUBTRACT})
	}
	if g.released(core.KEY_C) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_CROSS})
	}
	if g.released(core.KEY_K) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_SCALE, Scalar: 2})
	}
	if g.released(core.KEY_J) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_PROJECT_ON_VECTOR})
	}
	if g.released(core.KEY_L) {
		g.calculate(systems.CalculatorInput{Op: systems.OPERATION_PROJECT_ON_PLANE, Plane: systems.PLANE_XZ})
	}

	if g.released(core.KEY_SPACE) {
		// Push along the view, flattened onto the ground.
		force := state.WorldCamera.Direction
		force.Y = 0
		physics.Push(force)
	}
	if g.released(core.KEY_G) {
		cube := physics.Cube()
		physics.SetGravity(!cube.AffectedByGravity)
		core.LogInfo("cube gravity: %t", !cube.AffectedByGravity)
	}
	if g.released(core.KEY_R) {
		physics.Reset()
	}
	if g.released(core.KEY_PLUS) {
		g.scaleMass(2)
	}
	if g.released(core.KEY_MINUS) {
		g.scaleMass(0.5)
	}

	if g.released(core.KEY_HOME) {
		state.WorldCamera.Reset()
	}
	if g.released(core.KEY_F1) {
		c := state.WorldCamera
		core.LogInfo("Camera Pos: [%.3f, %.3f, %.3f] Yaw: %.1f Pitch: %.1f FOV: %.1f",
			c.Position.X, c.Position.Y, c.Position.Z, math.RadToDeg(c.Yaw), math.RadToDeg(c.Pitch), c.FOV)
	}
	return nil
}

// calculate runs op with the newest vector on the left and the one before on
// the right, for binary operations.
func (g *SandboxGame) calculate(in systems.CalculatorInput) {
	state := g.State.(*gameState)
	need := 1
	if in.Op.Binary() {
		need = 2
	}
	if len(state.history) < need {
		core.LogWarn("%s needs %d vectors, the scene has %d", in.Op, need, len(state.history))
		return
	}
	in.Left = state.history[len(state.history)-1]
	if need == 2 {
		in.Right = state.history[len(state.history)-2]
	}
	in.Color = palette[state.spawned%len(palette)]

	id, err := g.SystemManager.Calculator.Apply(in)
	if err != nil {
		core.LogWarn("%s failed: %s", in.Op, err)
		return
	}
	state.spawned++
	state.history = append(state.history, id)
}

func (g *SandboxGame) scaleMass(factor float32) {
	physics := g.SystemManager.PhysicsSystem
	if err := physics.SetMass(physics.Cube().Mass * factor); err != nil {
		core.LogWarn("cannot change the cube mass: %s", err)
		return
	}
	core.LogInfo("cube mass: %.3f", physics.Cube().Mass)
}

func (g *SandboxGame) released(key core.KeyCode) bool {
	return g.Input.IsKeyUp(key) && g.Input.WasKeyDown(key)
}

func (g *SandboxGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *SandboxGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogDebug("sandbox shutting down with %d vectors", len(state.history))
	state.history = nil
	return nil
}

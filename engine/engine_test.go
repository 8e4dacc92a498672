package engine

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/assets/loaders"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSandboxAssets lays out generated meshes and stub SPIR-V modules the
// way the asset manager expects them.
func writeSandboxAssets(t *testing.T, config *ApplicationConfig) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "meshes"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shaders"), 0o755))

	for name, g := range systems.SandboxGeometry() {
		data, err := g.EncodeBytes()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, "meshes", name), data, 0o644))
	}
	spirv := binary.LittleEndian.AppendUint32(nil, loaders.SPIRVMagic)
	spirv = binary.LittleEndian.AppendUint32(spirv, 0x00010000)
	for _, p := range config.Pipelines {
		for _, name := range []string{p.VertexShader, p.FragmentShader} {
			require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", name), spirv, 0o644))
		}
	}
	return root
}

type countingGame struct {
	updates int
	resizes int
	closed  bool
}

func newHeadlessGame(t *testing.T, frames uint64) (*Game, *countingGame) {
	t.Helper()
	config := DefaultApplicationConfig()
	config.Backend = "headless"
	config.HeadlessFrames = frames
	config.RefreshRate = 0
	config.MetricsInterval = 0
	config.Scene.GridCells = 8
	config.AssetsDir = writeSandboxAssets(t, config)

	state := &countingGame{}
	g := &Game{
		ApplicationConfig: config,
		State:             state,
		FnInitialize:      func() error { return nil },
		FnUpdate: func(float64) error {
			state.updates++
			return nil
		},
		FnOnResize: func(uint32, uint32) error {
			state.resizes++
			return nil
		},
		FnShutdown: func() error {
			state.closed = true
			return nil
		},
	}
	return g, state
}

func TestEngineHeadlessRun(t *testing.T) {
	g, state := newHeadlessGame(t, 3)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	require.NotNil(t, g.SystemManager)
	require.NotNil(t, g.EventBus)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, 3, state.updates)
	assert.Equal(t, 1, state.resizes)

	require.NoError(t, e.Shutdown())
	assert.True(t, state.closed)
}

func TestEngineStopsOnCancelledContext(t *testing.T) {
	g, _ := newHeadlessGame(t, 0)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.Frames())
}

func TestEngineQuitEvent(t *testing.T) {
	g, state := newHeadlessGame(t, 0)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	g.FnUpdate = func(float64) error {
		state.updates++
		if state.updates == 2 {
			g.Input.ProcessKey(core.KEY_ESCAPE, true)
		}
		return nil
	}
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(2), e.Frames())
}

func TestEngineKeepsDrawingThroughFailedSceneUpdate(t *testing.T) {
	g, state := newHeadlessGame(t, 3)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	backend, ok := e.renderer.Backend().(*headless.Backend)
	require.True(t, ok)
	physics := g.SystemManager.PhysicsSystem
	g.FnUpdate = func(float64) error {
		state.updates++
		if state.updates == 2 {
			physics.Push(math.NewVec3(1, 0, 0))
			backend.FailNext(headless.OpWriteBuffer, core.ErrBackend)
		}
		return nil
	}
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, uint64(3), e.Frames())
	assert.Len(t, backend.CallsOf(headless.OpDraw), 3, "the cube is drawn every frame")
	assert.Len(t, backend.CallsOf(headless.OpDrawInstanced), 3, "the grid is drawn every frame")
	assert.True(t, physics.Cube().Simulating)
}

func TestEngineResizeSuspends(t *testing.T) {
	g, state := newHeadlessGame(t, 1)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	g.EventBus.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0}})
	assert.True(t, e.isSuspended)

	g.EventBus.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	assert.False(t, e.isSuspended)
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)
	assert.Equal(t, 2, state.resizes)
}

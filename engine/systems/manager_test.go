package systems

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	backend  *headless.Backend
	renderer *renderer.Renderer
	assets   *sandboxAssets
	bus      *core.EventBus
	camera   *components.Camera
	manager  *SystemManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{backend: headless.New(), assets: newSandboxAssets(), bus: core.NewEventBus()}
	f.renderer = renderer.New(f.backend, f.assets, resources.DefaultLimits())
	require.NoError(t, f.renderer.Initialize("manager-test", 1280, 720))
	f.camera = components.NewCamera(math.NewVec3(0, 1, -5), 45, 16.0/9.0)

	var err error
	f.manager, err = NewSystemManager(f.renderer, core.NewInput(f.bus), f.bus, f.camera, sandboxManagerConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, f.manager.Shutdown())
		assert.NoError(t, f.renderer.Shutdown())
	})
	return f
}

func (f *managerFixture) pipelineHandle(t *testing.T, tag string) any {
	t.Helper()
	key, ok := f.manager.Pipeline(tag)
	require.True(t, ok)
	p, err := f.renderer.Table().Pipeline(key)
	require.NoError(t, err)
	return p.Handle
}

func TestSystemManagerLoadsScene(t *testing.T) {
	f := newManagerFixture(t)
	table := f.renderer.Table()

	assert.Equal(t, 3, table.Len(resources.KindMesh))
	assert.Equal(t, 3, table.Len(resources.KindPipeline))
	for _, tag := range []string{AssetVectorGizmo, AssetGridCell, AssetCube} {
		key, ok := f.manager.Mesh(tag)
		assert.True(t, ok, tag)
		assert.False(t, key.IsZero(), tag)
	}
}

func TestSystemManagerFrame(t *testing.T) {
	f := newManagerFixture(t)

	moved, err := f.manager.Update(1.0/120, 0)
	require.NoError(t, err)
	assert.True(t, moved)
	// Grid and cube. No vectors yet.
	assert.Len(t, f.renderer.List().Commands(), 2)

	_, err = f.manager.VectorSystem.Add(math.NewVec3Zero(), math.NewVec3(1, 1, 1), red)
	require.NoError(t, err)
	f.renderer.List().Reset()
	moved, err = f.manager.Update(1.0/120, 0.1)
	require.NoError(t, err)
	assert.False(t, moved)
	require.Len(t, f.renderer.List().Commands(), 3)

	frame := &renderer.FrameContext{DeltaTime: 1.0 / 120, CameraMoved: true, Camera: f.camera.Shared()}
	require.NoError(t, f.renderer.DrawFrame(context.Background(), frame))
	assert.Equal(t, 3, frame.Stats.Draws)
	assert.Zero(t, frame.Stats.Skipped)
	assert.Len(t, f.backend.CallsOf(headless.OpDrawInstanced), 2)
	assert.Len(t, f.backend.CallsOf(headless.OpDraw), 1)
	assert.Equal(t, f.camera.Shared(), f.backend.Camera())
}

func TestSystemManagerReloadsChangedShader(t *testing.T) {
	f := newManagerFixture(t)
	grid := f.pipelineHandle(t, PipelineGrid)
	gizmos := f.pipelineHandle(t, PipelineGizmos)

	f.bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: &core.AssetEvent{Path: "assets/shaders/grid.frag.spv"},
	})
	// Meshes are not shaders.
	f.bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: &core.AssetEvent{Path: "assets/models/cube.tka"},
	})
	_, err := f.manager.Update(1.0/120, 0)
	require.NoError(t, err)

	assert.NotEqual(t, grid, f.pipelineHandle(t, PipelineGrid))
	assert.Equal(t, gizmos, f.pipelineHandle(t, PipelineGizmos))
}

func TestSystemManagerKeepsPipelineWhenReloadFails(t *testing.T) {
	f := newManagerFixture(t)
	cube := f.pipelineHandle(t, PipelineCube)

	f.assets.broken["cube.vert.spv"] = core.ErrShaderNotFound
	f.bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: &core.AssetEvent{Path: "cube.vert.spv"},
	})
	_, err := f.manager.Update(1.0/120, 0)
	require.NoError(t, err)
	assert.Equal(t, cube, f.pipelineHandle(t, PipelineCube))
}

func TestSystemManagerMissingAsset(t *testing.T) {
	r := renderer.New(headless.New(), newSandboxAssets(), resources.DefaultLimits())
	bus := core.NewEventBus()
	camera := components.NewCamera(math.NewVec3Zero(), 45, 1)

	config := sandboxManagerConfig()
	delete(config.Assets, AssetCube)
	_, err := NewSystemManager(r, core.NewInput(bus), bus, camera, config)
	assert.Error(t, err)

	config = sandboxManagerConfig()
	config.Assets[AssetCube] = "missing.tka"
	_, err = NewSystemManager(r, core.NewInput(bus), bus, camera, config)
	assert.True(t, errors.Is(err, core.ErrMeshTruncated))
}

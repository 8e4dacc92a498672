package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/assets"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

// Entity and pipeline tags the sandbox declares in its configuration.
const (
	AssetVectorGizmo = "vector_gizmo"
	AssetGridCell    = "grid_cell"
	AssetCube        = "cube"

	PipelineGizmos = "gizmos"
	PipelineGrid   = "grid"
	PipelineCube   = "cube"
)

type SystemManagerConfig struct {
	// Entity tag to mesh asset name.
	Assets map[string]string
	// Pipeline tag to description.
	Pipelines  map[string]metadata.PipelineDesc
	MaxVectors int
	// Grid cells per side.
	GridCells int
	Camera    CameraSystemConfig
}

type SystemManager struct {
	scene Scene
	bus   *core.EventBus

	meshes    map[string]resources.Key
	pipelines map[string]resources.Key

	CameraSystem  *CameraSystem
	VectorSystem  *VectorSystem
	PhysicsSystem *PhysicsSystem
	SpaceSystem   *SpaceSystem
	Calculator    *Calculator

	// Shaders changed on disk since the last Update.
	staleShaders map[string]struct{}
}

// NewSystemManager loads every declared mesh and pipeline and builds the scene
// systems on top of them. Any failure here is fatal to the sandbox.
func NewSystemManager(scene Scene, input *core.Input, bus *core.EventBus, camera *components.Camera, config *SystemManagerConfig) (*SystemManager, error) {
	sm := &SystemManager{
		scene:        scene,
		bus:          bus,
		meshes:       make(map[string]resources.Key),
		pipelines:    make(map[string]resources.Key),
		staleShaders: make(map[string]struct{}),
	}
	table := scene.Table()

	for _, tag := range []string{AssetVectorGizmo, AssetGridCell, AssetCube} {
		name, ok := config.Assets[tag]
		if !ok {
			return nil, fmt.Errorf("no mesh declared for `%s`", tag)
		}
		key, err := table.LoadMesh(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load mesh for `%s`: %w", tag, err)
		}
		sm.meshes[tag] = key
	}
	for _, tag := range []string{PipelineGizmos, PipelineGrid, PipelineCube} {
		desc, ok := config.Pipelines[tag]
		if !ok {
			return nil, fmt.Errorf("no pipeline declared for `%s`", tag)
		}
		if desc.Name == "" {
			desc.Name = tag
		}
		key, err := table.CreatePipeline(desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create pipeline `%s`: %w", tag, err)
		}
		sm.pipelines[tag] = key
	}

	var err error
	if sm.CameraSystem, err = NewCameraSystem(&config.Camera, input, bus, camera); err != nil {
		return nil, err
	}
	if sm.SpaceSystem, err = NewSpaceSystem(scene, SpaceSystemConfig{
		Mesh:     sm.meshes[AssetGridCell],
		Pipeline: sm.pipelines[PipelineGrid],
		Cells:    config.GridCells,
	}); err != nil {
		return nil, err
	}
	if sm.VectorSystem, err = NewVectorSystem(scene, VectorSystemConfig{
		Mesh:       sm.meshes[AssetVectorGizmo],
		Pipeline:   sm.pipelines[PipelineGizmos],
		MaxVectors: config.MaxVectors,
	}); err != nil {
		return nil, err
	}
	if sm.PhysicsSystem, err = NewPhysicsSystem(scene, PhysicsSystemConfig{
		Mesh:     sm.meshes[AssetCube],
		Pipeline: sm.pipelines[PipelineCube],
	}); err != nil {
		return nil, err
	}
	sm.Calculator = NewCalculator(sm.VectorSystem)

	bus.Register(core.EVENT_CODE_ASSET_CHANGED, sm, sm.onAssetChanged)
	return sm, nil
}

func (sm *SystemManager) Pipeline(tag string) (resources.Key, bool) {
	key, ok := sm.pipelines[tag]
	return key, ok
}

func (sm *SystemManager) Mesh(tag string) (resources.Key, bool) {
	key, ok := sm.meshes[tag]
	return key, ok
}

// Update runs one frame of the scene: pipelines with changed shaders are
// rebuilt, the camera follows input and every system queues its draws.
// It reports whether the camera moved. Per-system failures are logged and
// the remaining systems still run.
func (sm *SystemManager) Update(deltaTime, elapsed float64) (bool, error) {
	sm.reloadStalePipelines()

	moved := sm.CameraSystem.Update(deltaTime)

	var errs []error
	if err := sm.SpaceSystem.Update(); err != nil {
		errs = append(errs, fmt.Errorf("space: %w", err))
	}
	if err := sm.VectorSystem.Update(); err != nil {
		errs = append(errs, fmt.Errorf("vectors: %w", err))
	}
	if err := sm.PhysicsSystem.Update(elapsed); err != nil {
		errs = append(errs, fmt.Errorf("physics: %w", err))
	}
	return moved, errors.Join(errs...)
}

func (sm *SystemManager) reloadStalePipelines() {
	if len(sm.staleShaders) == 0 {
		return
	}
	table := sm.scene.Table()
	for name := range sm.staleShaders {
		for _, key := range table.PipelinesUsingShader(name) {
			if err := table.ReloadPipeline(key); err != nil {
				core.LogError("failed to reload pipeline %s after `%s` changed: %s", key, name, err)
				continue
			}
			core.LogInfo("pipeline %s reloaded after `%s` changed", key, name)
		}
	}
	clear(sm.staleShaders)
}

func (sm *SystemManager) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if name := assets.ShaderName(ae.Path); name != "" {
		sm.staleShaders[name] = struct{}{}
	}
	return false
}

func (sm *SystemManager) Shutdown() error {
	sm.bus.Unregister(core.EVENT_CODE_ASSET_CHANGED, sm)
	var errs []error
	if sm.PhysicsSystem != nil {
		errs = append(errs, sm.PhysicsSystem.Shutdown())
	}
	if sm.VectorSystem != nil {
		errs = append(errs, sm.VectorSystem.Shutdown())
	}
	if sm.SpaceSystem != nil {
		errs = append(errs, sm.SpaceSystem.Shutdown())
	}
	if sm.CameraSystem != nil {
		errs = append(errs, sm.CameraSystem.Shutdown())
	}
	// Meshes and pipelines go away with the table.
	return errors.Join(errs...)
}

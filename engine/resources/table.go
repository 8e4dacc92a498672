package resources

import (
	"errors"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// Device is the part of a graphics backend the table needs to own GPU objects.
type Device interface {
	CreateBuffer(desc metadata.RenderBufferDesc) (metadata.BufferHandle, error)
	WriteBuffer(buffer metadata.BufferHandle, offset uint64, data []byte, mode metadata.WriteMode) error
	DestroyBuffer(buffer metadata.BufferHandle) error
	CreateStorageView(buffer metadata.BufferHandle, stride, count uint32) (metadata.ViewHandle, error)
	DestroyStorageView(view metadata.ViewHandle) error
	CreatePipeline(config *metadata.PipelineConfig) (metadata.PipelineHandle, error)
	DestroyPipeline(pipeline metadata.PipelineHandle) error
}

// AssetSource resolves asset names to raw bytes.
type AssetSource interface {
	// ReadMesh returns the vertex and index sections of a mesh asset.
	ReadMesh(name string) (vertices, indices []byte, err error)
	// ReadShader returns a compiled SPIR-V module.
	ReadShader(name string) ([]uint32, error)
}

// Limits caps the number of live entries per kind. Zero means unlimited.
type Limits struct {
	Objects   int `toml:"objects"`
	Instances int `toml:"instances"`
	Pipelines int `toml:"pipelines"`
	Meshes    int `toml:"meshes"`
}

// DefaultLimits mirrors the historical sizing of 100 entries per kind.
func DefaultLimits() Limits {
	return Limits{Objects: 100, Instances: 100, Pipelines: 100, Meshes: 100}
}

// Table owns every GPU object created on behalf of the scene and hands out
// keys for them. It is not safe for concurrent use.
type Table struct {
	device Device
	assets AssetSource

	objects   slots[ObjectResource]
	instances slots[InstanceResource]
	pipelines slots[Pipeline]
	meshes    slots[Mesh]
}

func NewTable(device Device, assets AssetSource, limits Limits) *Table {
	return &Table{
		device:    device,
		assets:    assets,
		objects:   newSlots[ObjectResource](KindObject, limits.Objects),
		instances: newSlots[InstanceResource](KindInstance, limits.Instances),
		pipelines: newSlots[Pipeline](KindPipeline, limits.Pipelines),
		meshes:    newSlots[Mesh](KindMesh, limits.Meshes),
	}
}

// Len returns the number of live entries of a kind.
func (t *Table) Len(kind Kind) int {
	switch kind {
	case KindObject:
		return t.objects.len()
	case KindInstance:
		return t.instances.len()
	case KindPipeline:
		return t.pipelines.len()
	case KindMesh:
		return t.meshes.len()
	}
	return 0
}

// Shutdown destroys every remaining GPU object. Keys handed out before are stale afterwards.
func (t *Table) Shutdown() error {
	var errs []error
	t.objects.each(func(k Key, _ *ObjectResource) {
		errs = append(errs, t.ReleaseObjectResource(k))
	})
	t.instances.each(func(k Key, _ *InstanceResource) {
		errs = append(errs, t.ReleaseInstanceResource(k))
	})
	t.pipelines.each(func(k Key, _ *Pipeline) {
		errs = append(errs, t.ReleasePipeline(k))
	})
	t.meshes.each(func(k Key, _ *Mesh) {
		errs = append(errs, t.ReleaseMesh(k))
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}
	core.LogDebug("resource table released")
	return nil
}

package resources

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// Pipeline is an immutable pipeline record. Binding it selects topology,
// vertex layout and both shader programs at once.
type Pipeline struct {
	Desc   metadata.PipelineDesc
	Handle metadata.PipelineHandle
	Stride uint32
}

// CreatePipeline loads both shader binaries and builds a pipeline whose
// vertex layout is derived from the declared vertex input.
func (t *Table) CreatePipeline(desc metadata.PipelineDesc) (Key, error) {
	if err := t.pipelines.reserve(); err != nil {
		return 0, err
	}
	handle, err := t.buildPipeline(desc)
	if err != nil {
		return 0, err
	}
	return t.pipelines.insert(Pipeline{
		Desc:   desc,
		Handle: handle,
		Stride: desc.VertexInput.Stride(),
	})
}

func (t *Table) buildPipeline(desc metadata.PipelineDesc) (metadata.PipelineHandle, error) {
	if !desc.VertexInput.Valid() {
		return 0, fmt.Errorf("pipeline `%s`: %w (%d)", desc.Name, core.ErrUnknownVertexInput, desc.VertexInput)
	}
	vertexCode, err := t.assets.ReadShader(desc.VertexShader)
	if err != nil {
		return 0, fmt.Errorf("pipeline `%s`: vertex shader `%s`: %w", desc.Name, desc.VertexShader, err)
	}
	fragmentCode, err := t.assets.ReadShader(desc.FragmentShader)
	if err != nil {
		return 0, fmt.Errorf("pipeline `%s`: fragment shader `%s`: %w", desc.Name, desc.FragmentShader, err)
	}
	handle, err := t.device.CreatePipeline(&metadata.PipelineConfig{
		Desc:         desc,
		VertexCode:   vertexCode,
		FragmentCode: fragmentCode,
	})
	if err != nil {
		return 0, fmt.Errorf("pipeline `%s`: %w", desc.Name, err)
	}
	core.LogDebug("pipeline `%s` created (%s, stride %d)", desc.Name, desc.VertexInput, desc.VertexInput.Stride())
	return handle, nil
}

// ReloadPipeline rebuilds a pipeline from its shader binaries in place. The
// key stays valid; on failure the previous pipeline is kept.
func (t *Table) ReloadPipeline(key Key) error {
	p, err := t.pipelines.get(key)
	if err != nil {
		return err
	}
	handle, err := t.buildPipeline(p.Desc)
	if err != nil {
		return err
	}
	if err := t.device.DestroyPipeline(p.Handle); err != nil {
		core.LogWarn("failed to destroy pipeline `%s`: %s", p.Desc.Name, err)
	}
	p.Handle = handle
	return nil
}

func (t *Table) Pipeline(key Key) (Pipeline, error) {
	p, err := t.pipelines.get(key)
	if err != nil {
		return Pipeline{}, err
	}
	return *p, nil
}

// PipelinesUsingShader returns the keys of every pipeline built from the named shader.
func (t *Table) PipelinesUsingShader(name string) []Key {
	var keys []Key
	t.pipelines.each(func(k Key, p *Pipeline) {
		if p.Desc.VertexShader == name || p.Desc.FragmentShader == name {
			keys = append(keys, k)
		}
	})
	return keys
}

func (t *Table) ReleasePipeline(key Key) error {
	p, err := t.pipelines.remove(key)
	if err != nil {
		return err
	}
	return t.device.DestroyPipeline(p.Handle)
}

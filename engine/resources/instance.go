package resources

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// InstanceResource is a structured buffer read once per instance, plus the
// view shaders read it through. Draws always read Count elements from offset 0.
type InstanceResource struct {
	Buffer metadata.BufferHandle
	View   metadata.ViewHandle
	Stride uint32
	Count  uint32
}

func (r InstanceResource) Size() uint64 {
	return uint64(r.Stride) * uint64(r.Count)
}

// CreateInstanceResource allocates count*stride bytes, uploads data and creates the read view.
func (t *Table) CreateInstanceResource(count, stride uint32, data []byte) (Key, error) {
	if err := t.instances.reserve(); err != nil {
		return 0, err
	}
	inst, err := t.buildInstance(count, stride, data)
	if err != nil {
		return 0, err
	}
	return t.instances.insert(inst)
}

func (t *Table) buildInstance(count, stride uint32, data []byte) (InstanceResource, error) {
	size := uint64(count) * uint64(stride)
	if size == 0 {
		return InstanceResource{}, fmt.Errorf("instance resource of %d x %d bytes: %w", count, stride, core.ErrUpdateOutOfRange)
	}
	if uint64(len(data)) < size {
		return InstanceResource{}, fmt.Errorf("instance resource needs %d bytes, got %d: %w", size, len(data), core.ErrUpdateOutOfRange)
	}
	buffer, err := t.device.CreateBuffer(metadata.RenderBufferDesc{
		Name:   "instance",
		Type:   metadata.RENDERBUFFER_TYPE_STORAGE,
		Size:   size,
		Stride: stride,
	})
	if err != nil {
		return InstanceResource{}, fmt.Errorf("failed to create instance buffer: %w", err)
	}
	if err := t.device.WriteBuffer(buffer, 0, data[:size], metadata.WRITE_MODE_DISCARD); err != nil {
		t.destroyBuffer(buffer)
		return InstanceResource{}, fmt.Errorf("failed to upload instance buffer: %w", err)
	}
	view, err := t.device.CreateStorageView(buffer, stride, count)
	if err != nil {
		t.destroyBuffer(buffer)
		return InstanceResource{}, fmt.Errorf("failed to create instance view: %w", err)
	}
	return InstanceResource{Buffer: buffer, View: view, Stride: stride, Count: count}, nil
}

// UpdateInstanceResource refreshes an instance buffer.
//
// Recreate builds a new buffer for count elements of stride bytes and only
// then releases the old one. Discard overwrites the first count elements.
// NoOverwrite writes count elements starting at byte offset.
func (t *Table) UpdateInstanceResource(key Key, data []byte, stride, count uint32, offset uint64, mode UpdateMode) error {
	inst, err := t.instances.get(key)
	if err != nil {
		return err
	}
	switch mode.Resolve() {
	case UPDATE_RESOURCE_NONE:
		return nil
	case UPDATE_RESOURCE_RECREATE:
		rebuilt, err := t.buildInstance(count, stride, data)
		if err != nil {
			return err
		}
		t.releaseInstanceObjects(*inst)
		*inst = rebuilt
		return nil
	case UPDATE_RESOURCE_DISCARD:
		offset = 0
	}

	if stride != inst.Stride {
		return fmt.Errorf("instance %s: stride %d does not match %d, recreate it: %w", key, stride, inst.Stride, core.ErrUpdateOutOfRange)
	}
	size := uint64(count) * uint64(stride)
	if uint64(len(data)) < size {
		return fmt.Errorf("instance %s: update needs %d bytes, got %d: %w", key, size, len(data), core.ErrUpdateOutOfRange)
	}
	if offset+size > inst.Size() {
		return fmt.Errorf("instance %s: write [%d, %d) past %d bytes: %w", key, offset, offset+size, inst.Size(), core.ErrUpdateOutOfRange)
	}
	writeMode := metadata.WRITE_MODE_DISCARD
	if mode.Resolve() == UPDATE_RESOURCE_NO_OVERWRITE {
		writeMode = metadata.WRITE_MODE_NO_OVERWRITE
	}
	return t.device.WriteBuffer(inst.Buffer, offset, data[:size], writeMode)
}

func (t *Table) Instance(key Key) (InstanceResource, error) {
	inst, err := t.instances.get(key)
	if err != nil {
		return InstanceResource{}, err
	}
	return *inst, nil
}

func (t *Table) ReleaseInstanceResource(key Key) error {
	inst, err := t.instances.remove(key)
	if err != nil {
		return err
	}
	t.releaseInstanceObjects(inst)
	return nil
}

func (t *Table) releaseInstanceObjects(inst InstanceResource) {
	if err := t.device.DestroyStorageView(inst.View); err != nil {
		core.LogWarn("failed to destroy storage view %d: %s", inst.View, err)
	}
	t.destroyBuffer(inst.Buffer)
}

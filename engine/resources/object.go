package resources

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

// ObjectResource is a small per-draw constant buffer.
type ObjectResource struct {
	Buffer metadata.BufferHandle
	Size   uint64
}

// CreateObjectResource allocates a buffer sized exactly to data and uploads it once.
func (t *Table) CreateObjectResource(data []byte) (Key, error) {
	if err := t.objects.reserve(); err != nil {
		return 0, err
	}
	obj, err := t.buildObject(data)
	if err != nil {
		return 0, err
	}
	return t.objects.insert(obj)
}

func (t *Table) buildObject(data []byte) (ObjectResource, error) {
	if len(data) == 0 {
		return ObjectResource{}, fmt.Errorf("object resource without data: %w", core.ErrUpdateOutOfRange)
	}
	buffer, err := t.device.CreateBuffer(metadata.RenderBufferDesc{
		Name: "object",
		Type: metadata.RENDERBUFFER_TYPE_UNIFORM,
		Size: uint64(len(data)),
	})
	if err != nil {
		return ObjectResource{}, fmt.Errorf("failed to create object buffer: %w", err)
	}
	if err := t.device.WriteBuffer(buffer, 0, data, metadata.WRITE_MODE_DISCARD); err != nil {
		t.destroyBuffer(buffer)
		return ObjectResource{}, fmt.Errorf("failed to upload object buffer: %w", err)
	}
	return ObjectResource{Buffer: buffer, Size: uint64(len(data))}, nil
}

// UpdateObjectResource refreshes an object buffer. Discard overwrites from the
// start, NoOverwrite writes data at offset 0 without discarding the rest, and
// Recreate rebuilds the buffer at the size of data.
func (t *Table) UpdateObjectResource(key Key, data []byte, mode UpdateMode) error {
	obj, err := t.objects.get(key)
	if err != nil {
		return err
	}
	switch mode.Resolve() {
	case UPDATE_RESOURCE_NONE:
		return nil
	case UPDATE_RESOURCE_RECREATE:
		rebuilt, err := t.buildObject(data)
		if err != nil {
			return err
		}
		t.destroyBuffer(obj.Buffer)
		*obj = rebuilt
		return nil
	case UPDATE_RESOURCE_DISCARD:
		if uint64(len(data)) > obj.Size {
			return fmt.Errorf("object %s: %d bytes into a %d byte buffer: %w", key, len(data), obj.Size, core.ErrUpdateOutOfRange)
		}
		return t.device.WriteBuffer(obj.Buffer, 0, data, metadata.WRITE_MODE_DISCARD)
	default:
		if uint64(len(data)) > obj.Size {
			return fmt.Errorf("object %s: %d bytes into a %d byte buffer: %w", key, len(data), obj.Size, core.ErrUpdateOutOfRange)
		}
		return t.device.WriteBuffer(obj.Buffer, 0, data, metadata.WRITE_MODE_NO_OVERWRITE)
	}
}

func (t *Table) Object(key Key) (ObjectResource, error) {
	obj, err := t.objects.get(key)
	if err != nil {
		return ObjectResource{}, err
	}
	return *obj, nil
}

func (t *Table) ReleaseObjectResource(key Key) error {
	obj, err := t.objects.remove(key)
	if err != nil {
		return err
	}
	return t.device.DestroyBuffer(obj.Buffer)
}

func (t *Table) destroyBuffer(buffer metadata.BufferHandle) {
	if err := t.device.DestroyBuffer(buffer); err != nil {
		core.LogWarn("failed to destroy buffer %d: %s", buffer, err)
	}
}

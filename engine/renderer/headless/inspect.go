package headless

import "github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"

// FailNext makes the next call of op return err.
func (b *Backend) FailNext(op Op, err error) {
	b.failures[op] = err
}

// Calls returns every call recorded since the last ResetCalls.
func (b *Backend) Calls() []Call {
	return b.calls
}

// CallsOf returns the recorded calls of one kind, in order.
func (b *Backend) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range b.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) ResetCalls() {
	b.calls = b.calls[:0]
}

// BufferData returns a copy of a buffer's contents, or nil for an unknown handle.
func (b *Backend) BufferData(buffer metadata.BufferHandle) []byte {
	buf, ok := b.buffers[buffer]
	if !ok {
		return nil
	}
	return append([]byte(nil), buf.Data...)
}

func (b *Backend) BufferDesc(buffer metadata.BufferHandle) (metadata.RenderBufferDesc, bool) {
	buf, ok := b.buffers[buffer]
	if !ok {
		return metadata.RenderBufferDesc{}, false
	}
	return buf.Desc, true
}

func (b *Backend) LiveBuffers() int {
	return len(b.buffers)
}

func (b *Backend) LivePipelines() int {
	return len(b.pipelines)
}

func (b *Backend) Camera() metadata.SharedCameraData {
	return b.camera
}

func (b *Backend) FrameCount() uint64 {
	return b.frames
}

func (b *Backend) Size() (uint32, uint32) {
	return b.width, b.height
}

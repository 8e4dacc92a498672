package renderer

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/containers"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

// DrawListArenaSize is the initial capacity of each geometry arena of a FrameCommandList.
const DrawListArenaSize = 5 * 1024

/**
 * @brief One draw of a frame. Offsets are counted in vertices and indices
 * into the concatenated geometry of the list that produced it.
 */
type DrawCommand struct {
	VertexOffset uint32
	IndexOffset  uint32
	ElementCount uint32
	ObjectKey    resources.Key
	InstanceKey  resources.Key
	Pipeline     resources.Key
}

// FrameCommandList batches the draws of a single frame. Mesh bytes are copied
// in, so the list does not depend on the meshes after PushDraw returns.
type FrameCommandList struct {
	table    *resources.Table
	commands []DrawCommand
	vertices *containers.Arena
	indices  *containers.Arena
}

func NewFrameCommandList(table *resources.Table) *FrameCommandList {
	return &FrameCommandList{
		table:    table,
		vertices: containers.NewArena("drawlist.vertices", DrawListArenaSize, containers.ArenaResizable, containers.DefaultGrowthFactor),
		indices:  containers.NewArena("drawlist.indices", DrawListArenaSize, containers.ArenaResizable, containers.DefaultGrowthFactor),
	}
}

// PushDraw appends a draw of mesh with pipeline. object and instance may be zero.
func (l *FrameCommandList) PushDraw(object, instance, mesh, pipeline resources.Key) error {
	m, err := l.table.Mesh(mesh)
	if err != nil {
		return fmt.Errorf("push draw: %w", err)
	}
	if _, err := l.table.Pipeline(pipeline); err != nil {
		return fmt.Errorf("push draw of `%s`: %w", m.Name, err)
	}

	cmd := DrawCommand{
		VertexOffset: uint32(l.VertexCount()),
		IndexOffset:  uint32(l.IndexCount()),
		ElementCount: uint32(m.IndexCount()),
		ObjectKey:    object,
		InstanceKey:  instance,
		Pipeline:     pipeline,
	}
	if _, err := l.vertices.PushAndCopy(m.Vertices.Data()); err != nil {
		return err
	}
	if _, err := l.indices.PushAndCopy(m.Indices.Data()); err != nil {
		return err
	}
	l.commands = append(l.commands, cmd)
	return nil
}

func (l *FrameCommandList) Commands() []DrawCommand {
	return l.commands
}

func (l *FrameCommandList) VertexBytes() []byte {
	return l.vertices.Data()
}

func (l *FrameCommandList) IndexBytes() []byte {
	return l.indices.Data()
}

func (l *FrameCommandList) VertexCount() int {
	return l.vertices.ElementCount(metadata.DrawVertexSize)
}

func (l *FrameCommandList) IndexCount() int {
	return l.indices.ElementCount(metadata.DrawIndexSize)
}

func (l *FrameCommandList) IsEmpty() bool {
	return len(l.commands) == 0
}

// Reset drops every command and all geometry. Arena capacity is kept.
func (l *FrameCommandList) Reset() {
	l.commands = l.commands[:0]
	l.vertices.Clear()
	l.indices.Clear()
}

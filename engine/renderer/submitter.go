package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

// GeometrySlack is the number of extra elements reserved whenever the shared
// vertex or index buffer has to grow.
const GeometrySlack = 500

// BindState is what the submitter last bound on the backend. It survives
// frames, so a frame starting with the pipeline the previous one ended with
// does not bind it again.
type BindState struct {
	Pipeline resources.Key
	Handle   metadata.PipelineHandle
}

// FrameStats counts what one Submit did.
type FrameStats struct {
	Commands      int
	Draws         int
	Skipped       int
	PipelineBinds int
}

/**
 * @brief Per-frame input and output of the submitter.
 */
type FrameContext struct {
	DeltaTime float64
	/** @brief Set when Camera changed since the last submitted frame. */
	CameraMoved bool
	Camera      metadata.SharedCameraData

	/** @brief Bind state after the frame was submitted. */
	Bind BindState
	/** @brief True when the backend asked to skip the frame. */
	FrameSkipped bool
	Stats        FrameStats
}

type geometryBuffer struct {
	handle   metadata.BufferHandle
	capacity int
}

// FrameSubmitter drains a FrameCommandList into a Backend once per frame.
type FrameSubmitter struct {
	backend  Backend
	table    *resources.Table
	bind     BindState
	vertices geometryBuffer
	indices  geometryBuffer
}

func NewFrameSubmitter(backend Backend, table *resources.Table) *FrameSubmitter {
	return &FrameSubmitter{
		backend: backend,
		table:   table,
	}
}

func (s *FrameSubmitter) BindState() BindState {
	return s.bind
}

// Submit uploads the geometry of list, records its draws and presents the
// frame. The list is reset whenever the frame got past BeginFrame.
func (s *FrameSubmitter) Submit(ctx context.Context, list *FrameCommandList, frame *FrameContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame.Stats = FrameStats{Commands: len(list.Commands())}
	frame.FrameSkipped = false

	if !list.IsEmpty() {
		if err := s.uploadGeometry(list); err != nil {
			list.Reset()
			return err
		}
	}
	if frame.CameraMoved {
		if err := s.backend.UpdateCamera(frame.Camera); err != nil {
			core.LogError("failed to update the camera: %s", err)
		} else {
			frame.CameraMoved = false
		}
	}

	if err := s.backend.BeginFrame(frame.DeltaTime); err != nil {
		list.Reset()
		if errors.Is(err, core.ErrSwapchainBooting) {
			frame.FrameSkipped = true
			frame.Bind = s.bind
			return nil
		}
		return fmt.Errorf("begin frame: %w", err)
	}

	if !list.IsEmpty() {
		if err := s.backend.BindGeometry(s.vertices.handle, s.indices.handle); err != nil {
			core.LogError("failed to bind frame geometry: %s", err)
			frame.Stats.Skipped = len(list.Commands())
		} else {
			for _, cmd := range list.Commands() {
				if err := s.draw(cmd, &frame.Stats); err != nil {
					core.LogError("draw skipped: %s", err)
					frame.Stats.Skipped++
				}
			}
		}
	}

	list.Reset()
	frame.Bind = s.bind
	if err := s.backend.EndFrame(frame.DeltaTime); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

func (s *FrameSubmitter) draw(cmd DrawCommand, stats *FrameStats) error {
	pipeline, err := s.table.Pipeline(cmd.Pipeline)
	if err != nil {
		return err
	}
	if s.bind.Pipeline != cmd.Pipeline || s.bind.Handle != pipeline.Handle {
		if err := s.backend.BindPipeline(pipeline.Handle); err != nil {
			s.bind = BindState{}
			return err
		}
		s.bind = BindState{Pipeline: cmd.Pipeline, Handle: pipeline.Handle}
		stats.PipelineBinds++
	}

	if !cmd.ObjectKey.IsZero() {
		obj, err := s.table.Object(cmd.ObjectKey)
		if err != nil {
			return err
		}
		if err := s.backend.BindObject(obj.Buffer); err != nil {
			return err
		}
	}

	if !cmd.InstanceKey.IsZero() {
		inst, err := s.table.Instance(cmd.InstanceKey)
		if err != nil {
			return err
		}
		if err := s.backend.BindInstance(inst.Buffer, inst.View); err != nil {
			return err
		}
		if err := s.backend.DrawIndexedInstanced(cmd.ElementCount, inst.Count, cmd.IndexOffset, int32(cmd.VertexOffset), 0); err != nil {
			return err
		}
	} else if err := s.backend.DrawIndexed(cmd.ElementCount, cmd.IndexOffset, int32(cmd.VertexOffset)); err != nil {
		return err
	}
	stats.Draws++
	return nil
}

func (s *FrameSubmitter) uploadGeometry(list *FrameCommandList) error {
	if err := s.ensure(&s.vertices, list.VertexCount(), metadata.DrawVertexSize, metadata.RENDERBUFFER_TYPE_VERTEX); err != nil {
		return err
	}
	if err := s.ensure(&s.indices, list.IndexCount(), metadata.DrawIndexSize, metadata.RENDERBUFFER_TYPE_INDEX); err != nil {
		return err
	}
	if err := s.backend.WriteBuffer(s.vertices.handle, 0, list.VertexBytes(), metadata.WRITE_MODE_DISCARD); err != nil {
		return fmt.Errorf("failed to upload frame vertices: %w", err)
	}
	if err := s.backend.WriteBuffer(s.indices.handle, 0, list.IndexBytes(), metadata.WRITE_MODE_DISCARD); err != nil {
		return fmt.Errorf("failed to upload frame indices: %w", err)
	}
	return nil
}

// ensure grows buf so it holds at least count elements.
func (s *FrameSubmitter) ensure(buf *geometryBuffer, count, elementSize int, kind metadata.RenderBufferType) error {
	if buf.handle != metadata.InvalidHandle && count <= buf.capacity {
		return nil
	}
	capacity := count + GeometrySlack
	handle, err := s.backend.CreateBuffer(metadata.RenderBufferDesc{
		Name: "frame." + kind.String(),
		Type: kind,
		Size: uint64(capacity * elementSize),
	})
	if err != nil {
		return fmt.Errorf("failed to grow the %s buffer to %d elements: %w", kind, capacity, err)
	}
	if buf.handle != metadata.InvalidHandle {
		if err := s.backend.DestroyBuffer(buf.handle); err != nil {
			core.LogWarn("failed to destroy the old %s buffer: %s", kind, err)
		}
	}
	core.LogDebug("frame %s buffer grown to %d elements", kind, capacity)
	buf.handle = handle
	buf.capacity = capacity
	return nil
}

// Shutdown releases the shared geometry buffers.
func (s *FrameSubmitter) Shutdown() error {
	var errs []error
	for _, buf := range []*geometryBuffer{&s.vertices, &s.indices} {
		if buf.handle != metadata.InvalidHandle {
			errs = append(errs, s.backend.DestroyBuffer(buf.handle))
			*buf = geometryBuffer{}
		}
	}
	s.bind = BindState{}
	return errors.Join(errs...)
}

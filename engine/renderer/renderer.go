package renderer

import (
	"context"
	"errors"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

// Renderer wires a backend to the resource table, the frame command list and
// the submitter. The scene talks to it through keys only.
type Renderer struct {
	backend   Backend
	table     *resources.Table
	list      *FrameCommandList
	submitter *FrameSubmitter
}

func New(backend Backend, assets resources.AssetSource, limits resources.Limits) *Renderer {
	table := resources.NewTable(backend, assets, limits)
	return &Renderer{
		backend:   backend,
		table:     table,
		list:      NewFrameCommandList(table),
		submitter: NewFrameSubmitter(backend, table),
	}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := r.backend.Initialize(appName, appWidth, appHeight); err != nil {
		return err
	}
	core.LogInfo("Renderer initialized.")
	return nil
}

func (r *Renderer) Backend() Backend {
	return r.backend
}

func (r *Renderer) Table() *resources.Table {
	return r.table
}

func (r *Renderer) List() *FrameCommandList {
	return r.list
}

func (r *Renderer) BindState() BindState {
	return r.submitter.BindState()
}

// PushDraw appends a draw to the current frame.
func (r *Renderer) PushDraw(object, instance, mesh, pipeline resources.Key) error {
	return r.list.PushDraw(object, instance, mesh, pipeline)
}

func (r *Renderer) OnResize(width, height uint32) error {
	return r.backend.Resized(width, height)
}

// DrawFrame submits every draw pushed since the previous frame.
func (r *Renderer) DrawFrame(ctx context.Context, frame *FrameContext) error {
	if err := r.submitter.Submit(ctx, r.list, frame); err != nil {
		core.LogError("failed to draw frame: %s", err)
		return err
	}
	return nil
}

// Shutdown releases every GPU object before tearing the backend down.
func (r *Renderer) Shutdown() error {
	err := errors.Join(r.submitter.Shutdown(), r.table.Shutdown())
	if err != nil {
		core.LogError("failed to release renderer resources: %s", err)
	}
	return errors.Join(err, r.backend.Shutdown())
}

package systems

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vecsandbox/engine/containers"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

const (
	// VectorInstanceSize is one {Transform mat4, Color vec4} instance.
	VectorInstanceSize = math.Mat4Size + 16
	// DefaultMaxVectors caps the vectors alive at once.
	DefaultMaxVectors = 256
)

// Scene is what the systems need from the renderer: the resource table and a
// way to queue draws for the current frame.
type Scene interface {
	Table() *resources.Table
	PushDraw(object, instance, mesh, pipeline resources.Key) error
}

/**
 * @brief A vector drawn as an arrow gizmo from Start to End.
 */
type Vector struct {
	ID    uuid.UUID
	Start math.Vec3
	End   math.Vec3
	Color math.Vec4
}

func (v Vector) Direction() math.Vec3 {
	return v.End.Sub(v.Start)
}

// Transform places the unit gizmo, which points down +Z from the origin, on the vector.
func (v Vector) Transform() math.Mat4 {
	return VectorTransform(v.Start, v.Direction())
}

// VectorTransform returns T(start) * R(basis of dir) * S(1, 1, |dir|).
func VectorTransform(start, dir math.Vec3) math.Mat4 {
	length := dir.Length()
	if length <= math.K_FLOAT_EPSILON {
		return math.NewMat4Translation(start).Mul(math.NewMat4Scale(math.NewVec3(1, 1, 0)))
	}
	forward := dir.DivScalar(length)
	up := math.NewVec3Up()
	if up.Cross(forward).LengthSquared() <= math.K_FLOAT_EPSILON {
		up = math.NewVec3Forward()
	}
	right := up.Cross(forward).Normalize()
	up = forward.Cross(right)

	rotation := math.NewMat4Basis(right, up, forward)
	return math.NewMat4Translation(start).Mul(rotation).Mul(math.NewMat4Scale(math.NewVec3(1, 1, length)))
}

func (v Vector) appendInstance(b []byte) []byte {
	b = v.Transform().AppendBytes(b)
	return v.Color.AppendBytes(b)
}

type VectorSystemConfig struct {
	Mesh     resources.Key
	Pipeline resources.Key
	// Zero means DefaultMaxVectors.
	MaxVectors int
}

// VectorSystem owns the scene vectors and their shared instance resource.
// Adding or removing a vector recreates the resource; moving or recoloring
// one discards it. Either way the GPU sees one update per frame.
type VectorSystem struct {
	scene  Scene
	config VectorSystemConfig

	vectors []Vector
	index   map[uuid.UUID]int
	// CPU copy of the instances, VectorInstanceSize bytes each, in vectors order.
	data *containers.Arena

	key     resources.Key
	pending resources.Pending
}

func NewVectorSystem(scene Scene, config VectorSystemConfig) (*VectorSystem, error) {
	if scene == nil {
		return nil, fmt.Errorf("func NewVectorSystem - scene is nil")
	}
	if config.MaxVectors <= 0 {
		config.MaxVectors = DefaultMaxVectors
	}
	return &VectorSystem{
		scene:  scene,
		config: config,
		index:  make(map[uuid.UUID]int),
		data:   containers.NewArena("vector instances", 2*1024, containers.ArenaResizable, containers.DefaultGrowthFactor),
	}, nil
}

// Add creates a vector and returns its ID. It fails with core.ErrTableFull once MaxVectors are alive.
func (vs *VectorSystem) Add(start, end math.Vec3, color math.Vec4) (uuid.UUID, error) {
	if len(vs.vectors) >= vs.config.MaxVectors {
		return uuid.Nil, fmt.Errorf("cannot add more than %d vectors: %w", vs.config.MaxVectors, core.ErrTableFull)
	}
	v := Vector{
		ID:    uuid.New(),
		Start: start,
		End:   end,
		Color: color,
	}
	if _, err := vs.data.PushAndCopy(v.appendInstance(make([]byte, 0, VectorInstanceSize))); err != nil {
		return uuid.Nil, err
	}
	vs.index[v.ID] = len(vs.vectors)
	vs.vectors = append(vs.vectors, v)
	vs.pending.Request(resources.UPDATE_RESOURCE_RECREATE)
	core.LogDebug("vector %s added: %v -> %v", v.ID, start, end)
	return v.ID, nil
}

// Remove deletes a vector. The last vector takes its slot.
func (vs *VectorSystem) Remove(id uuid.UUID) error {
	i, ok := vs.index[id]
	if !ok {
		return fmt.Errorf("vector %s: %w", id, core.ErrInvalidKey)
	}
	last := len(vs.vectors) - 1
	if i != last {
		vs.vectors[i] = vs.vectors[last]
		vs.index[vs.vectors[i].ID] = i
	}
	vs.vectors = vs.vectors[:last]
	delete(vs.index, id)

	vs.rebuildData()
	vs.pending.Request(resources.UPDATE_RESOURCE_RECREATE)
	return nil
}

func (vs *VectorSystem) Move(id uuid.UUID, start, end math.Vec3) error {
	i, ok := vs.index[id]
	if !ok {
		return fmt.Errorf("vector %s: %w", id, core.ErrInvalidKey)
	}
	vs.vectors[i].Start = start
	vs.vectors[i].End = end
	vs.writeInstance(i)
	vs.pending.Request(resources.UPDATE_RESOURCE_DISCARD)
	return nil
}

func (vs *VectorSystem) Recolor(id uuid.UUID, color math.Vec4) error {
	i, ok := vs.index[id]
	if !ok {
		return fmt.Errorf("vector %s: %w", id, core.ErrInvalidKey)
	}
	vs.vectors[i].Color = color
	vs.writeInstance(i)
	vs.pending.Request(resources.UPDATE_RESOURCE_DISCARD)
	return nil
}

func (vs *VectorSystem) Get(id uuid.UUID) (Vector, bool) {
	i, ok := vs.index[id]
	if !ok {
		return Vector{}, false
	}
	return vs.vectors[i], true
}

// Vectors returns a copy of the live vectors in instance order.
func (vs *VectorSystem) Vectors() []Vector {
	out := make([]Vector, len(vs.vectors))
	copy(out, vs.vectors)
	return out
}

func (vs *VectorSystem) Len() int {
	return len(vs.vectors)
}

func (vs *VectorSystem) InstanceKey() resources.Key {
	return vs.key
}

func (vs *VectorSystem) Pending() resources.UpdateMode {
	return vs.pending.Modes()
}

// Update applies the pending changes in one table update and queues the gizmo
// draw. A failed update keeps its flags for the next frame and the gizmos are
// drawn from the previous instance buffer.
func (vs *VectorSystem) Update() error {
	updateErr := vs.apply()
	if updateErr != nil {
		core.LogError("vector instances not updated: %s", updateErr)
	}
	if vs.key.IsZero() {
		return updateErr
	}
	return errors.Join(updateErr, vs.scene.PushDraw(0, vs.key, vs.config.Mesh, vs.config.Pipeline))
}

func (vs *VectorSystem) apply() error {
	if !vs.pending.Dirty() {
		return nil
	}
	table := vs.scene.Table()
	count := uint32(len(vs.vectors))

	if vs.pending.Modes().Resolve() == resources.UPDATE_RESOURCE_RECREATE {
		switch {
		case count == 0:
			if !vs.key.IsZero() {
				if err := table.ReleaseInstanceResource(vs.key); err != nil {
					return err
				}
				vs.key = 0
			}
			vs.pending.Clear()
			return nil
		case vs.key.IsZero():
			key, err := table.CreateInstanceResource(count, VectorInstanceSize, vs.data.Data())
			if err != nil {
				return err
			}
			vs.key = key
			vs.pending.Clear()
			return nil
		}
	}
	if vs.key.IsZero() {
		vs.pending.Clear()
		return nil
	}
	return vs.pending.ApplyInstance(table, vs.key, vs.data.Data(), VectorInstanceSize, count)
}

func (vs *VectorSystem) writeInstance(i int) {
	dst := vs.data.Bytes(i*VectorInstanceSize, VectorInstanceSize)
	vs.vectors[i].appendInstance(dst[:0])
}

func (vs *VectorSystem) rebuildData() {
	vs.data.Clear()
	buf := make([]byte, 0, VectorInstanceSize)
	for _, v := range vs.vectors {
		// A resizable arena only fails on a non-positive size.
		_, _ = vs.data.PushAndCopy(v.appendInstance(buf[:0]))
	}
}

func (vs *VectorSystem) Shutdown() error {
	if !vs.key.IsZero() {
		if err := vs.scene.Table().ReleaseInstanceResource(vs.key); err != nil {
			return err
		}
		vs.key = 0
	}
	vs.data.Release()
	return nil
}

package systems

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = math.NewVec4(1, 0, 0, 1)

func newVectorSystem(t *testing.T, f *sceneFixture, max int) *VectorSystem {
	t.Helper()
	vs, err := NewVectorSystem(f.renderer, VectorSystemConfig{Mesh: f.mesh, Pipeline: f.pipeline, MaxVectors: max})
	require.NoError(t, err)
	return vs
}

func TestVectorTransformMapsGizmoOntoVector(t *testing.T) {
	start := math.NewVec3(1, 2, 3)
	for _, dir := range []math.Vec3{
		math.NewVec3(0, 0, 2),
		math.NewVec3(3, 0, 0),
		math.NewVec3(0, 4, 0),
		math.NewVec3(0, -1, 0),
		math.NewVec3(1, 1, -1),
	} {
		m := VectorTransform(start, dir)
		assert.True(t, math.NewVec3Zero().Transform(m).Compare(start, 1e-5), "tail of %v", dir)
		assert.True(t, math.NewVec3Forward().Transform(m).Compare(start.Add(dir), 1e-5), "tip of %v", dir)
	}
}

func TestVectorTransformZeroLength(t *testing.T) {
	start := math.NewVec3(1, 0, 0)
	m := VectorTransform(start, math.NewVec3Zero())
	assert.True(t, math.NewVec3Forward().Transform(m).Compare(start, 1e-6))
}

func TestVectorAddCreatesInstanceOnUpdate(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	id, err := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, vs.InstanceKey().IsZero())
	assert.Equal(t, resources.UPDATE_RESOURCE_RECREATE, vs.Pending())

	require.NoError(t, vs.Update())
	require.False(t, vs.InstanceKey().IsZero())
	assert.Equal(t, resources.UPDATE_RESOURCE_NONE, vs.Pending())

	inst, err := f.renderer.Table().Instance(vs.InstanceKey())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), inst.Count)
	assert.Equal(t, uint32(VectorInstanceSize), inst.Stride)

	cmds := f.renderer.List().Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, vs.InstanceKey(), cmds[0].InstanceKey)
	assert.True(t, cmds[0].ObjectKey.IsZero())
}

func TestVectorEmptySceneQueuesNoDraw(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	require.NoError(t, vs.Update())
	assert.True(t, f.renderer.List().IsEmpty())
	assert.Empty(t, f.backend.CallsOf(headless.OpCreateBuffer))
}

func TestVectorMoveDiscardsInPlace(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	a, err := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	require.NoError(t, err)
	_, err = vs.Add(math.NewVec3Zero(), math.NewVec3(0, 1, 0), red)
	require.NoError(t, err)
	require.NoError(t, vs.Update())
	key := vs.InstanceKey()
	f.backend.ResetCalls()

	require.NoError(t, vs.Move(a, math.NewVec3(1, 1, 1), math.NewVec3(2, 2, 2)))
	require.NoError(t, vs.Recolor(a, math.NewVec4(0, 1, 0, 1)))
	assert.Equal(t, resources.UPDATE_RESOURCE_DISCARD, vs.Pending())
	require.NoError(t, vs.Update())

	assert.Equal(t, key, vs.InstanceKey())
	writes := f.backend.CallsOf(headless.OpWriteBuffer)
	require.Len(t, writes, 1)
	assert.Equal(t, 2*VectorInstanceSize, writes[0].Size)
	assert.Empty(t, f.backend.CallsOf(headless.OpCreateBuffer))

	v, ok := vs.Get(a)
	require.True(t, ok)
	assert.Equal(t, math.NewVec3(2, 2, 2), v.End)
}

func TestVectorFailedUpdateKeepsDrawingPreviousInstances(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	a, err := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	require.NoError(t, err)
	require.NoError(t, vs.Update())
	key := vs.InstanceKey()
	inst, err := f.renderer.Table().Instance(key)
	require.NoError(t, err)
	before := f.backend.BufferData(inst.Buffer)
	f.renderer.List().Reset()

	require.NoError(t, vs.Move(a, math.NewVec3(1, 1, 1), math.NewVec3(2, 2, 2)))
	f.backend.FailNext(headless.OpWriteBuffer, core.ErrBackend)
	err = vs.Update()
	require.ErrorIs(t, err, core.ErrBackend)

	cmds := f.renderer.List().Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, key, cmds[0].InstanceKey)
	assert.Equal(t, key, vs.InstanceKey())
	assert.Equal(t, before, f.backend.BufferData(inst.Buffer))
	assert.Equal(t, resources.UPDATE_RESOURCE_DISCARD, vs.Pending())

	f.renderer.List().Reset()
	require.NoError(t, vs.Update())
	assert.NotEqual(t, before, f.backend.BufferData(inst.Buffer))
	assert.Equal(t, resources.UPDATE_RESOURCE_NONE, vs.Pending())
	require.Len(t, f.renderer.List().Commands(), 1)
}

func TestVectorRemoveSwapsLastIntoSlot(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	a, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	b, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(0, 1, 0), red)
	c, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(0, 0, 1), red)
	require.NoError(t, vs.Update())

	require.NoError(t, vs.Remove(a))
	vectors := vs.Vectors()
	require.Len(t, vectors, 2)
	assert.Equal(t, c, vectors[0].ID)
	assert.Equal(t, b, vectors[1].ID)

	require.NoError(t, vs.Update())
	inst, err := f.renderer.Table().Instance(vs.InstanceKey())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), inst.Count)

	data := f.backend.BufferData(inst.Buffer)
	want := vectors[0].appendInstance(nil)
	assert.Equal(t, want, data[:VectorInstanceSize])

	assert.ErrorIs(t, vs.Remove(a), core.ErrInvalidKey)
}

func TestVectorRemoveLastReleasesInstance(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	id, _ := vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	require.NoError(t, vs.Update())
	key := vs.InstanceKey()
	f.renderer.List().Reset()

	require.NoError(t, vs.Remove(id))
	require.NoError(t, vs.Update())
	assert.True(t, vs.InstanceKey().IsZero())
	assert.True(t, f.renderer.List().IsEmpty())
	_, err := f.renderer.Table().Instance(key)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestVectorAddRespectsLimit(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 2)

	for i := 0; i < 2; i++ {
		_, err := vs.Add(math.NewVec3Zero(), math.NewVec3(float32(i+1), 0, 0), red)
		require.NoError(t, err)
	}
	_, err := vs.Add(math.NewVec3Zero(), math.NewVec3(3, 0, 0), red)
	assert.ErrorIs(t, err, core.ErrTableFull)
	assert.Equal(t, 2, vs.Len())
}

func TestVectorUnknownID(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	assert.ErrorIs(t, vs.Move(uuid.New(), math.NewVec3Zero(), math.NewVec3Zero()), core.ErrInvalidKey)
	assert.ErrorIs(t, vs.Recolor(uuid.New(), red), core.ErrInvalidKey)
	_, ok := vs.Get(uuid.New())
	assert.False(t, ok)
}

func TestVectorShutdownReleasesInstance(t *testing.T) {
	f := newSceneFixture(t)
	vs := newVectorSystem(t, f, 0)

	_, _ = vs.Add(math.NewVec3Zero(), math.NewVec3(1, 0, 0), red)
	require.NoError(t, vs.Update())
	require.Equal(t, 1, f.renderer.Table().Len(resources.KindInstance))

	require.NoError(t, vs.Shutdown())
	assert.Zero(t, f.renderer.Table().Len(resources.KindInstance))
}

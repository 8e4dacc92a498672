package systems

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhysicsSystem(t *testing.T, f *sceneFixture) *PhysicsSystem {
	t.Helper()
	ps, err := NewPhysicsSystem(f.renderer, PhysicsSystemConfig{Mesh: f.mesh, Pipeline: f.pipeline})
	require.NoError(t, err)
	f.backend.ResetCalls()
	return ps
}

func TestPhysicsCubeStartsAtRest(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	cube := ps.Cube()
	assert.Equal(t, CubeStartPosition, cube.Position)
	assert.False(t, cube.Simulating)

	obj, err := f.renderer.Table().Object(ps.ObjectKey())
	require.NoError(t, err)
	desc, ok := f.backend.BufferDesc(obj.Buffer)
	require.True(t, ok)
	assert.Equal(t, uint64(CubeObjectSize), desc.Size)
}

func TestPhysicsStepIdleDoesNotUpload(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	require.NoError(t, ps.Update(0.5))
	assert.Empty(t, f.backend.CallsOf(headless.OpWriteBuffer))
	require.Len(t, f.renderer.List().Commands(), 1)
	assert.Equal(t, ps.ObjectKey(), f.renderer.List().Commands()[0].ObjectKey)
}

func TestPhysicsPushIntegrates(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	ps.SetForceMagnitude(2)
	ps.Push(math.NewVec3(5, 0, 0))
	require.True(t, ps.Cube().Simulating)
	assert.True(t, ps.Cube().Velocity.Compare(math.NewVec3(2, 0, 0), 1e-6))

	require.NoError(t, ps.Update(1))
	want := CubeStartPosition.Add(math.NewVec3(2*CubeFixedStep, 0, 0))
	assert.True(t, ps.Cube().Position.Compare(want, 1e-6))

	writes := f.backend.CallsOf(headless.OpWriteBuffer)
	require.Len(t, writes, 1)
	assert.Equal(t, CubeObjectSize, writes[0].Size)

	obj, err := f.renderer.Table().Object(ps.ObjectKey())
	require.NoError(t, err)
	data := f.backend.BufferData(obj.Buffer)
	assert.Equal(t, math.NewMat4Translation(want).AppendBytes(nil), data[:math.Mat4Size])
}

func TestPhysicsGravity(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	ps.SetGravity(true)
	ps.Push(math.NewVec3(0, 0, 1))
	ps.Step()
	assert.InDelta(t, CubeGravity*CubeFixedStep, ps.Cube().Velocity.Y, 1e-6)
	assert.Less(t, ps.Cube().Position.Y, CubeStartPosition.Y)
}

func TestPhysicsPushEdgeCases(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	ps.Push(math.NewVec3Zero())
	assert.False(t, ps.Cube().Simulating)

	ps.SetForceMagnitude(-4)
	ps.Push(math.NewVec3(0, 3, 0))
	assert.True(t, ps.Cube().Velocity.Compare(math.NewVec3(0, 1, 0), 1e-6))
}

func TestPhysicsReset(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	ps.Push(math.NewVec3(1, 0, 0))
	ps.Step()
	ps.Reset()

	cube := ps.Cube()
	assert.Equal(t, CubeResetPosition, cube.Position)
	assert.Equal(t, math.NewVec3Zero(), cube.Velocity)
	assert.False(t, cube.Simulating)

	require.NoError(t, ps.Update(0))
	assert.Len(t, f.backend.CallsOf(headless.OpWriteBuffer), 1)

	require.NoError(t, ps.Shutdown())
	assert.Zero(t, f.renderer.Table().Len(resources.KindObject))
}

func TestPhysicsMass(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	for _, mass := range []float32{0, -2} {
		assert.Error(t, ps.SetMass(mass), "mass %v", mass)
	}
	assert.Equal(t, float32(1), ps.Cube().Mass)

	require.NoError(t, ps.SetMass(4))
	ps.SetForceMagnitude(2)
	ps.Push(math.NewVec3(0, 0, 3))
	assert.True(t, ps.Cube().Velocity.Compare(math.NewVec3(0, 0, 0.5), 1e-6))
}

func TestPhysicsFailedUploadStillDrawsCube(t *testing.T) {
	f := newSceneFixture(t)
	ps := newPhysicsSystem(t, f)

	obj, err := f.renderer.Table().Object(ps.ObjectKey())
	require.NoError(t, err)
	before := f.backend.BufferData(obj.Buffer)

	ps.Push(math.NewVec3(1, 0, 0))
	f.backend.FailNext(headless.OpWriteBuffer, core.ErrBackend)
	err = ps.Update(1)
	require.ErrorIs(t, err, core.ErrBackend)

	cmds := f.renderer.List().Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, ps.ObjectKey(), cmds[0].ObjectKey)
	assert.Equal(t, before, f.backend.BufferData(obj.Buffer))

	f.renderer.List().Reset()
	require.NoError(t, ps.Update(2))
	assert.NotEqual(t, before, f.backend.BufferData(obj.Buffer))
	require.Len(t, f.renderer.List().Commands(), 1)
}

package resources

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMesh struct {
	vertices []byte
	indices  []byte
}

type fakeAssets struct {
	meshes  map[string]fakeMesh
	shaders map[string][]uint32
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		meshes: map[string]fakeMesh{
			"triangle": {vertices: make([]byte, 3*metadata.DrawVertexSize), indices: make([]byte, 3*metadata.DrawIndexSize)},
			"ragged":   {vertices: make([]byte, 20), indices: make([]byte, 6)},
		},
		shaders: map[string][]uint32{
			"gizmos.vert.spv": {0x07230203, 1},
			"gizmos.frag.spv": {0x07230203, 2},
		},
	}
}

func (f *fakeAssets) ReadMesh(name string) ([]byte, []byte, error) {
	m, ok := f.meshes[name]
	if !ok {
		return nil, nil, fmt.Errorf("mesh `%s`: %w", name, core.ErrMeshTruncated)
	}
	return m.vertices, m.indices, nil
}

func (f *fakeAssets) ReadShader(name string) ([]uint32, error) {
	code, ok := f.shaders[name]
	if !ok {
		return nil, fmt.Errorf("shader `%s`: %w", name, core.ErrShaderNotFound)
	}
	return code, nil
}

func newTestTable(t *testing.T, limits Limits) (*Table, *headless.Backend) {
	t.Helper()
	backend := headless.New()
	require.NoError(t, backend.Initialize("resources-test", 800, 600))
	return NewTable(backend, newFakeAssets(), limits), backend
}

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestTableLimits(t *testing.T) {
	table, backend := newTestTable(t, Limits{Objects: 2})

	_, err := table.CreateObjectResource(filled(16, 1))
	require.NoError(t, err)
	_, err = table.CreateObjectResource(filled(16, 2))
	require.NoError(t, err)

	_, err = table.CreateObjectResource(filled(16, 3))
	assert.ErrorIs(t, err, core.ErrTableFull)
	assert.Equal(t, 2, backend.LiveBuffers(), "a rejected create must not touch the device")
	assert.Equal(t, 2, table.Len(KindObject))

	// other kinds are unlimited
	for i := 0; i < 5; i++ {
		_, err := table.CreateInstanceResource(1, 4, filled(4, byte(i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, table.Len(KindInstance))
}

func TestTableDefaultLimits(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	for i := 0; i < 100; i++ {
		_, err := table.CreateObjectResource(filled(4, 0))
		require.NoError(t, err)
	}
	_, err := table.CreateObjectResource(filled(4, 0))
	assert.ErrorIs(t, err, core.ErrTableFull)
}

func TestTableReleasedSlotIsReused(t *testing.T) {
	table, _ := newTestTable(t, Limits{Objects: 1})

	first, err := table.CreateObjectResource(filled(8, 1))
	require.NoError(t, err)
	require.NoError(t, table.ReleaseObjectResource(first))

	second, err := table.CreateObjectResource(filled(8, 2))
	require.NoError(t, err)

	assert.Equal(t, first.index(), second.index())
	assert.NotEqual(t, first, second)

	_, err = table.Object(first)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	assert.ErrorIs(t, table.ReleaseObjectResource(first), core.ErrInvalidKey)

	obj, err := table.Object(second)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), obj.Size)
}

func TestTableRejectsForeignKeys(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	obj, err := table.CreateObjectResource(filled(8, 1))
	require.NoError(t, err)

	_, err = table.Instance(obj)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	_, err = table.Pipeline(obj)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	_, err = table.Mesh(0)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
	_, err = table.Object(newKey(KindObject, 42, 1))
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestTableShutdownReleasesEverything(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	obj, err := table.CreateObjectResource(filled(64, 1))
	require.NoError(t, err)
	_, err = table.CreateInstanceResource(2, 12, filled(24, 1))
	require.NoError(t, err)
	_, err = table.CreatePipeline(gizmosDesc())
	require.NoError(t, err)
	_, err = table.LoadMesh("triangle")
	require.NoError(t, err)

	require.NoError(t, table.Shutdown())
	assert.Zero(t, backend.LiveBuffers())
	assert.Zero(t, backend.LivePipelines())
	for _, kind := range []Kind{KindObject, KindInstance, KindPipeline, KindMesh} {
		assert.Zero(t, table.Len(kind), kind.String())
	}
	_, err = table.Object(obj)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "none", Key(0).String())
	k := newKey(KindInstance, 7, 3)
	assert.Equal(t, KindInstance, k.Kind())
	assert.Equal(t, "instance#7.3", k.String())
	assert.False(t, k.IsZero())
}

package resources

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMesh(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.LoadMesh("triangle")
	require.NoError(t, err)

	mesh, err := table.Mesh(key)
	require.NoError(t, err)
	assert.Equal(t, "triangle", mesh.Name)
	assert.Equal(t, 3, mesh.VertexCount())
	assert.Equal(t, 3, mesh.IndexCount())
	assert.Zero(t, backend.LiveBuffers(), "meshes stay on the CPU until a frame uploads them")
}

func TestLoadMeshMissing(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	_, err := table.LoadMesh("teapot")
	assert.ErrorIs(t, err, core.ErrMeshTruncated)
	assert.Zero(t, table.Len(KindMesh))
}

func TestLoadMeshRejectsPartialElements(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	_, err := table.LoadMesh("ragged")
	assert.ErrorIs(t, err, core.ErrMeshMisaligned)
	assert.Zero(t, table.Len(KindMesh))
}

func TestReleaseMesh(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	key, err := table.LoadMesh("triangle")
	require.NoError(t, err)
	require.NoError(t, table.ReleaseMesh(key))

	_, err = table.Mesh(key)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

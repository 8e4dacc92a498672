package resources

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectCreateUploadsOnce(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	data := filled(80, 3)
	key, err := table.CreateObjectResource(data)
	require.NoError(t, err)

	obj, err := table.Object(key)
	require.NoError(t, err)
	assert.Equal(t, uint64(80), obj.Size)
	assert.Equal(t, data, backend.BufferData(obj.Buffer))

	desc, ok := backend.BufferDesc(obj.Buffer)
	require.True(t, ok)
	assert.Equal(t, metadata.RENDERBUFFER_TYPE_UNIFORM, desc.Type)
	assert.Len(t, backend.CallsOf(headless.OpWriteBuffer), 1)
}

func TestObjectUpdateModes(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateObjectResource(filled(16, 1))
	require.NoError(t, err)

	require.NoError(t, table.UpdateObjectResource(key, filled(16, 2), UPDATE_RESOURCE_DISCARD))
	obj, _ := table.Object(key)
	assert.Equal(t, filled(16, 2), backend.BufferData(obj.Buffer))

	require.NoError(t, table.UpdateObjectResource(key, filled(8, 3), UPDATE_RESOURCE_NO_OVERWRITE))
	assert.Equal(t, append(filled(8, 3), filled(8, 2)...), backend.BufferData(obj.Buffer))

	err = table.UpdateObjectResource(key, filled(32, 4), UPDATE_RESOURCE_DISCARD)
	assert.ErrorIs(t, err, core.ErrUpdateOutOfRange)

	require.NoError(t, table.UpdateObjectResource(key, filled(32, 4), UPDATE_RESOURCE_RECREATE))
	rebuilt, _ := table.Object(key)
	assert.Equal(t, uint64(32), rebuilt.Size)
	assert.NotEqual(t, obj.Buffer, rebuilt.Buffer)
	assert.Equal(t, 1, backend.LiveBuffers())

	calls := len(backend.Calls())
	require.NoError(t, table.UpdateObjectResource(key, filled(32, 5), UPDATE_RESOURCE_NONE))
	assert.Len(t, backend.Calls(), calls, "no-op update does not reach the device")
}

func TestObjectCreateFailureLeavesNoBuffer(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	backend.FailNext(headless.OpWriteBuffer, core.ErrBackend)
	_, err := table.CreateObjectResource(filled(16, 1))
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.Zero(t, backend.LiveBuffers())

	_, err = table.CreateObjectResource(nil)
	assert.ErrorIs(t, err, core.ErrUpdateOutOfRange)
}

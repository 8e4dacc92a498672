package resources

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceDiscardRoundTrip(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(4, 16, filled(64, 0xAA))
	require.NoError(t, err)

	update := make([]byte, 64)
	for i := range update {
		update[i] = byte(i)
	}
	require.NoError(t, table.UpdateInstanceResource(key, update, 16, 4, 0, UPDATE_RESOURCE_DISCARD))

	inst, err := table.Instance(key)
	require.NoError(t, err)
	assert.Equal(t, update, backend.BufferData(inst.Buffer))

	writes := backend.CallsOf(headless.OpWriteBuffer)
	require.NotEmpty(t, writes)
	last := writes[len(writes)-1]
	assert.Equal(t, metadata.WRITE_MODE_DISCARD, last.Mode)
	assert.Zero(t, last.Offset)
}

func TestInstanceNoOverwriteKeepsOtherElements(t *testing.T) {
	const stride = 8
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(10, stride, filled(10*stride, 0x11))
	require.NoError(t, err)

	patch := filled(2*stride, 0x22)
	require.NoError(t, table.UpdateInstanceResource(key, patch, stride, 2, stride*5, UPDATE_RESOURCE_NO_OVERWRITE))

	inst, err := table.Instance(key)
	require.NoError(t, err)
	data := backend.BufferData(inst.Buffer)
	assert.Equal(t, filled(5*stride, 0x11), data[:5*stride])
	assert.Equal(t, patch, data[5*stride:7*stride])
	assert.Equal(t, filled(3*stride, 0x11), data[7*stride:])

	writes := backend.CallsOf(headless.OpWriteBuffer)
	last := writes[len(writes)-1]
	assert.Equal(t, metadata.WRITE_MODE_NO_OVERWRITE, last.Mode)
	assert.Equal(t, uint64(stride*5), last.Offset)
}

func TestInstanceUpdateBounds(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(4, 12, filled(48, 0))
	require.NoError(t, err)

	tests := []struct {
		name   string
		data   []byte
		stride uint32
		count  uint32
		offset uint64
		mode   UpdateMode
	}{
		{"past the end", filled(24, 1), 12, 2, 36, UPDATE_RESOURCE_NO_OVERWRITE},
		{"too many elements", filled(60, 1), 12, 5, 0, UPDATE_RESOURCE_DISCARD},
		{"stride mismatch", filled(48, 1), 16, 3, 0, UPDATE_RESOURCE_DISCARD},
		{"short data", filled(10, 1), 12, 2, 0, UPDATE_RESOURCE_NO_OVERWRITE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := table.UpdateInstanceResource(key, tt.data, tt.stride, tt.count, tt.offset, tt.mode)
			assert.ErrorIs(t, err, core.ErrUpdateOutOfRange)
		})
	}
}

func TestInstanceRecreateResizes(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(1, 80, filled(80, 0))
	require.NoError(t, err)
	before, err := table.Instance(key)
	require.NoError(t, err)

	data := filled(3*80, 7)
	require.NoError(t, table.UpdateInstanceResource(key, data, 80, 3, 0, UPDATE_RESOURCE_RECREATE|UPDATE_RESOURCE_DISCARD))

	after, err := table.Instance(key)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), after.Count)
	assert.Equal(t, uint64(240), after.Size())
	assert.NotEqual(t, before.Buffer, after.Buffer)
	assert.Nil(t, backend.BufferData(before.Buffer), "old buffer is released")
	assert.Equal(t, data, backend.BufferData(after.Buffer))
	assert.Equal(t, 1, backend.LiveBuffers())
}

func TestInstanceRecreateFailureKeepsEntry(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(2, 12, filled(24, 5))
	require.NoError(t, err)
	before, err := table.Instance(key)
	require.NoError(t, err)

	backend.FailNext(headless.OpCreateBuffer, core.ErrBackend)
	err = table.UpdateInstanceResource(key, filled(48, 6), 12, 4, 0, UPDATE_RESOURCE_RECREATE)
	require.ErrorIs(t, err, core.ErrBackend)

	after, err := table.Instance(key)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, filled(24, 5), backend.BufferData(after.Buffer))
}

func TestInstanceCreateValidation(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	_, err := table.CreateInstanceResource(0, 12, nil)
	assert.ErrorIs(t, err, core.ErrUpdateOutOfRange)
	_, err = table.CreateInstanceResource(4, 12, filled(12, 0))
	assert.ErrorIs(t, err, core.ErrUpdateOutOfRange)

	backend.FailNext(headless.OpCreateView, core.ErrBackend)
	_, err = table.CreateInstanceResource(1, 12, filled(12, 0))
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.Zero(t, backend.LiveBuffers(), "buffer of a failed create is destroyed")
	assert.Zero(t, table.Len(KindInstance))
}

func TestInstanceRelease(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(2, 12, filled(24, 5))
	require.NoError(t, err)
	require.NoError(t, table.ReleaseInstanceResource(key))

	assert.Zero(t, backend.LiveBuffers())
	assert.Len(t, backend.CallsOf(headless.OpDestroyView), 1)
	assert.ErrorIs(t, table.ReleaseInstanceResource(key), core.ErrInvalidKey)
}

package resources

import (
	"testing"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateModeResolve(t *testing.T) {
	tests := []struct {
		modes UpdateMode
		want  UpdateMode
	}{
		{UPDATE_RESOURCE_NONE, UPDATE_RESOURCE_NONE},
		{UPDATE_RESOURCE_NO_OVERWRITE, UPDATE_RESOURCE_NO_OVERWRITE},
		{UPDATE_RESOURCE_DISCARD | UPDATE_RESOURCE_NO_OVERWRITE, UPDATE_RESOURCE_DISCARD},
		{UPDATE_RESOURCE_RECREATE | UPDATE_RESOURCE_DISCARD, UPDATE_RESOURCE_RECREATE},
		{UPDATE_RESOURCE_RECREATE | UPDATE_RESOURCE_NO_OVERWRITE, UPDATE_RESOURCE_RECREATE},
	}
	for _, tt := range tests {
		t.Run(tt.modes.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.modes.Resolve())
		})
	}
	assert.Equal(t, "recreate|discard", (UPDATE_RESOURCE_RECREATE | UPDATE_RESOURCE_DISCARD).String())
}

func TestPendingCollapsesToOneWrite(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(4, 12, filled(48, 0))
	require.NoError(t, err)
	backend.ResetCalls()

	var p Pending
	p.RequestRange(24)
	p.Request(UPDATE_RESOURCE_DISCARD)
	p.RequestRange(12)
	require.True(t, p.Dirty())

	require.NoError(t, p.ApplyInstance(table, key, filled(48, 9), 12, 4))
	writes := backend.CallsOf(headless.OpWriteBuffer)
	require.Len(t, writes, 1)
	assert.Equal(t, metadata.WRITE_MODE_DISCARD, writes[0].Mode)
	assert.Equal(t, 48, writes[0].Size)
	assert.False(t, p.Dirty())

	require.NoError(t, p.ApplyInstance(table, key, filled(48, 9), 12, 4))
	assert.Len(t, backend.CallsOf(headless.OpWriteBuffer), 1, "clean resource is not written")
}

func TestPendingRangesWriteFromLowestOffset(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(4, 12, filled(48, 0))
	require.NoError(t, err)
	backend.ResetCalls()

	var p Pending
	p.RequestRange(36)
	p.RequestRange(26)

	data := filled(48, 4)
	require.NoError(t, p.ApplyInstance(table, key, data, 12, 4))

	writes := backend.CallsOf(headless.OpWriteBuffer)
	require.Len(t, writes, 1)
	assert.Equal(t, metadata.WRITE_MODE_NO_OVERWRITE, writes[0].Mode)
	assert.Equal(t, uint64(24), writes[0].Offset)
	assert.Equal(t, 24, writes[0].Size)

	inst, _ := table.Instance(key)
	assert.Equal(t, append(filled(24, 0), filled(24, 4)...), backend.BufferData(inst.Buffer))
}

func TestPendingKeepsFlagsOnFailure(t *testing.T) {
	table, backend := newTestTable(t, DefaultLimits())

	key, err := table.CreateObjectResource(filled(16, 0))
	require.NoError(t, err)

	var p Pending
	p.Request(UPDATE_RESOURCE_DISCARD)
	backend.FailNext(headless.OpWriteBuffer, core.ErrBackend)
	assert.ErrorIs(t, p.ApplyObject(table, key, filled(16, 1)), core.ErrBackend)
	assert.Equal(t, UPDATE_RESOURCE_DISCARD, p.Modes())

	require.NoError(t, p.ApplyObject(table, key, filled(16, 1)))
	assert.False(t, p.Dirty())
	obj, _ := table.Object(key)
	assert.Equal(t, filled(16, 1), backend.BufferData(obj.Buffer))
}

func TestPendingZeroStride(t *testing.T) {
	table, _ := newTestTable(t, DefaultLimits())

	key, err := table.CreateInstanceResource(1, 12, filled(12, 0))
	require.NoError(t, err)

	var p Pending
	p.Request(UPDATE_RESOURCE_DISCARD)
	assert.ErrorIs(t, p.ApplyInstance(table, key, filled(12, 0), 0, 1), core.ErrUpdateOutOfRange)
	assert.True(t, p.Dirty())
}

package containers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaPushAccumulates(t *testing.T) {
	a := NewArena("test", 4, ArenaResizable, 2)

	sizes := []int{1, 3, 7, 0, 16, 2, 64}
	total := 0
	for _, n := range sizes {
		offset, err := a.Push(n)
		require.NoError(t, err)
		assert.Equal(t, total, offset)
		total += n
	}
	assert.Equal(t, total, a.Used())
	assert.LessOrEqual(t, a.Used(), a.Capacity())
}

func TestArenaGrowthPreservesBytes(t *testing.T) {
	a := NewArena("test", 8, ArenaResizable, 2)

	type span struct {
		offset int
		data   []byte
	}
	var spans []span
	for i := 0; i < 20; i++ {
		payload := bytes.Repeat([]byte{byte(i + 1)}, i+3)
		offset, err := a.PushAndCopy(payload)
		require.NoError(t, err)
		spans = append(spans, span{offset: offset, data: payload})
	}

	for _, s := range spans {
		assert.Equal(t, s.data, a.Bytes(s.offset, len(s.data)))
	}
}

func TestArenaGrowthSize(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		factor   int
		push     int
		expected int
	}{
		{name: "factor wins", capacity: 10, factor: 3, push: 11, expected: 30},
		{name: "request wins", capacity: 10, factor: 2, push: 50, expected: 50},
		{name: "factor clamped", capacity: 10, factor: 1, push: 11, expected: 20},
		{name: "empty arena", capacity: 0, factor: 2, push: 5, expected: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena("test", tt.capacity, ArenaResizable, tt.factor)
			_, err := a.Push(tt.push)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a.Capacity())
		})
	}
}

func TestArenaFixedExhaustion(t *testing.T) {
	a := NewArena("fixed", 16, ArenaFixed, 0)

	_, err := a.Push(12)
	require.NoError(t, err)

	_, err = a.Push(5)
	assert.ErrorIs(t, err, ErrArenaExhausted)
	assert.Equal(t, 12, a.Used())
	assert.Equal(t, 16, a.Capacity())

	_, err = a.PushAndCopy([]byte{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrArenaExhausted)

	offset, err := a.Push(4)
	require.NoError(t, err)
	assert.Equal(t, 12, offset)
}

func TestArenaClear(t *testing.T) {
	a := NewArena("test", 8, ArenaResizable, 2)
	_, err := a.PushAndCopy([]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9})
	require.NoError(t, err)
	capacity := a.Capacity()

	a.Clear()
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, capacity, a.Capacity())

	offset, err := a.Push(10)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), a.Bytes(offset, 10))
}

func TestArenaElementCount(t *testing.T) {
	a := NewArena("test", 0, ArenaResizable, 2)
	_, err := a.Push(80 * 3)
	require.NoError(t, err)

	assert.Equal(t, 3, a.ElementCount(80))
	assert.Equal(t, 7, a.ElementCount(32))
	assert.Equal(t, 0, a.ElementCount(0))
}

func TestArenaBytesOutOfRange(t *testing.T) {
	a := NewArena("test", 32, ArenaFixed, 0)
	_, err := a.Push(4)
	require.NoError(t, err)

	assert.Panics(t, func() { a.Bytes(2, 4) })
	assert.NotPanics(t, func() { a.Bytes(0, 4) })
}

func TestArenaRelease(t *testing.T) {
	a := NewArena("test", 32, ArenaResizable, 2)
	_, err := a.Push(16)
	require.NoError(t, err)

	a.Release()
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, 0, a.Capacity())

	_, err = a.Push(4)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Capacity())
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputKeyTransitions(t *testing.T) {
	bus := NewEventBus()
	var pressed, released int
	bus.Register(EVENT_CODE_KEY_PRESSED, "p", func(ctx EventContext) bool {
		pressed++
		assert.Equal(t, KEY_W, ctx.Data.(*KeyEvent).KeyCode)
		return false
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, "r", func(ctx EventContext) bool {
		released++
		return false
	})

	in := NewInput(bus)
	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	assert.True(t, in.IsKeyDown(KEY_W))
	assert.True(t, in.WasKeyUp(KEY_W))
	assert.Equal(t, 1, pressed)

	in.Update(0)
	assert.True(t, in.WasKeyDown(KEY_W))

	in.ProcessKey(KEY_W, false)
	assert.True(t, in.IsKeyUp(KEY_W))
	assert.Equal(t, 1, released)
}

func TestInputMouseDelta(t *testing.T) {
	in := NewInput(nil)
	in.ProcessMouseMove(10, 20)
	in.Update(0)
	in.ProcessMouseMove(15, 12)

	dx, dy := in.MouseDelta()
	assert.Equal(t, int32(5), dx)
	assert.Equal(t, int32(-8), dy)

	in.ProcessButton(BUTTON_RIGHT, true)
	assert.True(t, in.IsButtonDown(BUTTON_RIGHT))
	assert.True(t, in.WasButtonUp(BUTTON_RIGHT))
}

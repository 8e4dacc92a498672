package containers

import (
	"errors"
	"fmt"
)

var ErrArenaExhausted = errors.New("arena exhausted")

type GrowthMode uint8

const (
	// Fixed arenas fail a push that does not fit.
	ArenaFixed GrowthMode = iota
	// Resizable arenas reallocate on overflow and keep the bytes already written.
	ArenaResizable
)

const DefaultGrowthFactor = 2

func (m GrowthMode) String() string {
	switch m {
	case ArenaFixed:
		return "fixed"
	case ArenaResizable:
		return "resizable"
	}
	return fmt.Sprintf("GrowthMode(%d)", m)
}

// Arena is a linear byte allocator. Allocations are addressed by offset, so
// growth never invalidates what a caller holds; slices obtained through Bytes
// are only valid until the next Push.
type Arena struct {
	name         string
	memory       []byte
	used         int
	mode         GrowthMode
	growthFactor int
}

// NewArena reserves capacity bytes. A growth factor below 2 is raised to 2.
func NewArena(name string, capacity int, mode GrowthMode, growthFactor int) *Arena {
	if growthFactor < 2 {
		growthFactor = DefaultGrowthFactor
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{
		name:         name,
		memory:       make([]byte, capacity),
		mode:         mode,
		growthFactor: growthFactor,
	}
}

// Push reserves size bytes and returns the offset of the first one.
func (a *Arena) Push(size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("arena %q: negative push of %d bytes", a.name, size)
	}
	if a.used+size > len(a.memory) {
		if a.mode != ArenaResizable {
			return 0, fmt.Errorf("arena %q: push of %d bytes with %d/%d used: %w", a.name, size, a.used, len(a.memory), ErrArenaExhausted)
		}
		a.grow(size)
	}
	offset := a.used
	a.used += size
	return offset, nil
}

// PushAndCopy reserves len(src) bytes and copies src into them.
func (a *Arena) PushAndCopy(src []byte) (int, error) {
	offset, err := a.Push(len(src))
	if err != nil {
		return 0, err
	}
	copy(a.memory[offset:], src)
	return offset, nil
}

func (a *Arena) grow(size int) {
	newCapacity := len(a.memory) * a.growthFactor
	if newCapacity < a.used+size {
		newCapacity = a.used + size
	}
	memory := make([]byte, newCapacity)
	copy(memory, a.memory[:a.used])
	a.memory = memory
}

// Bytes returns the n bytes at offset. It panics when the range was never pushed.
func (a *Arena) Bytes(offset, n int) []byte {
	if offset < 0 || n < 0 || offset+n > a.used {
		panic(fmt.Sprintf("arena %q: range [%d, %d) outside of %d used bytes", a.name, offset, offset+n, a.used))
	}
	return a.memory[offset : offset+n : offset+n]
}

// Data returns every byte pushed so far.
func (a *Arena) Data() []byte {
	return a.memory[:a.used:a.used]
}

// Clear zeroes the written region and rewinds the arena. Capacity is kept.
func (a *Arena) Clear() {
	clear(a.memory[:a.used])
	a.used = 0
}

func (a *Arena) ElementCount(sizePerElement int) int {
	if sizePerElement <= 0 {
		return 0
	}
	return a.used / sizePerElement
}

func (a *Arena) Used() int {
	return a.used
}

func (a *Arena) Capacity() int {
	return len(a.memory)
}

func (a *Arena) Name() string {
	return a.name
}

func (a *Arena) Mode() GrowthMode {
	return a.mode
}

// Release drops the backing memory. The arena is empty and fixed-size zero afterwards.
func (a *Arena) Release() {
	a.memory = nil
	a.used = 0
}

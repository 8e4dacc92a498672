package resources

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/vecsandbox/engine/core"
)

// UpdateMode is a bitmask of pending update kinds for a dynamic resource.
type UpdateMode uint16

const (
	UPDATE_RESOURCE_NONE UpdateMode = 0
	// Release the buffer and build a new one sized for the new count/stride.
	UPDATE_RESOURCE_RECREATE UpdateMode = 1 << 0
	// Overwrite the whole buffer; the previous contents may be discarded.
	UPDATE_RESOURCE_DISCARD UpdateMode = 1 << 1
	// Write a sub-range the GPU is not reading.
	UPDATE_RESOURCE_NO_OVERWRITE UpdateMode = 1 << 2
)

// Resolve picks the single mode to apply when several are pending.
// Recreate wins over Discard, which wins over NoOverwrite.
func (m UpdateMode) Resolve() UpdateMode {
	switch {
	case m&UPDATE_RESOURCE_RECREATE != 0:
		return UPDATE_RESOURCE_RECREATE
	case m&UPDATE_RESOURCE_DISCARD != 0:
		return UPDATE_RESOURCE_DISCARD
	case m&UPDATE_RESOURCE_NO_OVERWRITE != 0:
		return UPDATE_RESOURCE_NO_OVERWRITE
	}
	return UPDATE_RESOURCE_NONE
}

func (m UpdateMode) Has(mode UpdateMode) bool {
	return m&mode != 0
}

func (m UpdateMode) String() string {
	if m == UPDATE_RESOURCE_NONE {
		return "none"
	}
	var parts []string
	if m.Has(UPDATE_RESOURCE_RECREATE) {
		parts = append(parts, "recreate")
	}
	if m.Has(UPDATE_RESOURCE_DISCARD) {
		parts = append(parts, "discard")
	}
	if m.Has(UPDATE_RESOURCE_NO_OVERWRITE) {
		parts = append(parts, "no-overwrite")
	}
	return strings.Join(parts, "|")
}

// Pending accumulates the updates requested for one resource during a frame so
// they reach the GPU as a single write.
type Pending struct {
	modes UpdateMode
	// lowest byte offset touched by no-overwrite requests
	offset uint64
}

// Request records a full-buffer update of the given mode.
func (p *Pending) Request(mode UpdateMode) {
	p.modes |= mode
}

// RequestRange records a no-overwrite write starting at offset. Several
// ranges collapse into one write from the lowest offset.
func (p *Pending) RequestRange(offset uint64) {
	if !p.modes.Has(UPDATE_RESOURCE_NO_OVERWRITE) || offset < p.offset {
		p.offset = offset
	}
	p.modes |= UPDATE_RESOURCE_NO_OVERWRITE
}

func (p *Pending) Modes() UpdateMode {
	return p.modes
}

func (p *Pending) Dirty() bool {
	return p.modes != UPDATE_RESOURCE_NONE
}

func (p *Pending) Clear() {
	p.modes = UPDATE_RESOURCE_NONE
	p.offset = 0
}

// ApplyInstance performs the accumulated update on an instance resource in a
// single call. data holds the full CPU copy of the instances. The flags are
// cleared on success and kept on failure so the next frame retries.
func (p *Pending) ApplyInstance(t *Table, key Key, data []byte, stride, count uint32) error {
	mode := p.modes.Resolve()
	if mode == UPDATE_RESOURCE_NONE {
		return nil
	}
	if stride == 0 {
		return fmt.Errorf("instance update of %s with zero stride: %w", key, core.ErrUpdateOutOfRange)
	}
	var offset uint64
	payload := data
	n := count
	if mode == UPDATE_RESOURCE_NO_OVERWRITE {
		offset = p.offset - p.offset%uint64(stride)
		first := uint32(offset / uint64(stride))
		if first >= count || offset >= uint64(len(data)) {
			p.Clear()
			return nil
		}
		n = count - first
		payload = data[offset:]
	}
	if err := t.UpdateInstanceResource(key, payload, stride, n, offset, mode); err != nil {
		return err
	}
	p.Clear()
	return nil
}

// ApplyObject performs the accumulated update on an object resource.
func (p *Pending) ApplyObject(t *Table, key Key, data []byte) error {
	mode := p.modes.Resolve()
	if mode == UPDATE_RESOURCE_NONE {
		return nil
	}
	if err := t.UpdateObjectResource(key, data, mode); err != nil {
		return err
	}
	p.Clear()
	return nil
}

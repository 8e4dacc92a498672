package resources

import (
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
)

type Kind uint8

const (
	KindObject Kind = iota + 1
	KindInstance
	KindPipeline
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindInstance:
		return "instance"
	case KindPipeline:
		return "pipeline"
	case KindMesh:
		return "mesh"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

const generationMask = 0x00FFFFFF

// Key is an opaque handle to an entry of the Table. The zero Key means "no
// resource bound". A key carries its kind and the generation of its slot, so a
// released or foreign key never resolves.
type Key uint64

func newKey(kind Kind, index, generation uint32) Key {
	return Key(uint64(kind)<<56 | uint64(generation&generationMask)<<32 | uint64(index))
}

func (k Key) Kind() Kind {
	return Kind(k >> 56)
}

func (k Key) index() uint32 {
	return uint32(k)
}

func (k Key) generation() uint32 {
	return uint32(k>>32) & generationMask
}

func (k Key) IsZero() bool {
	return k == 0
}

func (k Key) String() string {
	if k == 0 {
		return "none"
	}
	return fmt.Sprintf("%s#%d.%d", k.Kind(), k.index(), k.generation())
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// slots is a growable slot array with a free list. Released indices are
// reused with a bumped generation.
type slots[T any] struct {
	kind    Kind
	limit   int
	entries []slot[T]
	free    []uint32
	live    int
}

func newSlots[T any](kind Kind, limit int) slots[T] {
	return slots[T]{kind: kind, limit: limit}
}

// reserve checks capacity before any backend work is done.
func (s *slots[T]) reserve() error {
	if s.limit > 0 && s.live >= s.limit {
		return fmt.Errorf("%s table holds %d/%d entries: %w", s.kind, s.live, s.limit, core.ErrTableFull)
	}
	return nil
}

func (s *slots[T]) insert(value T) (Key, error) {
	if err := s.reserve(); err != nil {
		return 0, err
	}
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.entries))
		s.entries = append(s.entries, slot[T]{generation: 1})
	}
	e := &s.entries[index]
	e.value = value
	e.live = true
	s.live++
	return newKey(s.kind, index, e.generation), nil
}

func (s *slots[T]) get(key Key) (*T, error) {
	if key == 0 {
		return nil, fmt.Errorf("%s key is unbound: %w", s.kind, core.ErrInvalidKey)
	}
	if key.Kind() != s.kind {
		return nil, fmt.Errorf("key %s used as a %s key: %w", key, s.kind, core.ErrInvalidKey)
	}
	index := key.index()
	if int(index) >= len(s.entries) {
		return nil, fmt.Errorf("key %s out of range (%d slots): %w", key, len(s.entries), core.ErrInvalidKey)
	}
	e := &s.entries[index]
	if !e.live || e.generation != key.generation() {
		return nil, fmt.Errorf("key %s is stale: %w", key, core.ErrInvalidKey)
	}
	return &e.value, nil
}

func (s *slots[T]) remove(key Key) (T, error) {
	var zero T
	v, err := s.get(key)
	if err != nil {
		return zero, err
	}
	value := *v
	e := &s.entries[key.index()]
	e.value = zero
	e.live = false
	e.generation = (e.generation + 1) & generationMask
	if e.generation == 0 {
		e.generation = 1
	}
	s.free = append(s.free, key.index())
	s.live--
	return value, nil
}

func (s *slots[T]) each(fn func(Key, *T)) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.live {
			fn(newKey(s.kind, uint32(i), e.generation), &e.value)
		}
	}
}

func (s *slots[T]) len() int {
	return s.live
}

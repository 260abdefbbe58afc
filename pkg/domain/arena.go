package domain

import "fmt"

// Handle addresses a slot in an Arena. The zero Handle never refers to a live value.
type Handle struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Generation)
}

type arenaSlot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena is a generational slot map. Removing a value returns its slot to a
// free list; the next Insert reuses the lowest free slot before growing and
// bumps its generation, so handles to the old value become stale.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	if len(a.free) > 0 {
		best := 0
		for i, idx := range a.free {
			if idx < a.free[best] {
				best = i
			}
		}
		idx := a.free[best]
		a.free[best] = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]

		s := &a.slots[idx]
		s.generation++
		s.value = v
		s.live = true
		a.live++
		return Handle{Index: idx, Generation: s.generation}
	}

	idx := uint32(len(a.slots))
	a.slots = append(a.slots, arenaSlot[T]{value: v, generation: 1, live: true})
	a.live++
	return Handle{Index: idx, Generation: 1}
}

// Get returns a pointer to the value behind h, or false if h is stale or invalid.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil, false
	}
	return &s.value, true
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot behind h. It returns false for stale or invalid handles.
func (a *Arena[T]) Remove(h Handle) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}
	s := &a.slots[h.Index]
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.Index)
	a.live--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Cap returns the number of slots, live or free.
func (a *Arena[T]) Cap() int {
	return len(a.slots)
}

// Each calls fn for every live value in slot order.
func (a *Arena[T]) Each(fn func(Handle, *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(Handle{Index: uint32(i), Generation: s.generation}, &s.value)
		}
	}
}

// Clone copies the arena slot for slot, generations and free list included,
// so every handle into a stays valid in the copy. copyValue deep-copies each
// live value; nil copies values as is.
func (a *Arena[T]) Clone(copyValue func(*T) T) Arena[T] {
	c := Arena[T]{
		slots: make([]arenaSlot[T], len(a.slots)),
		free:  append([]uint32(nil), a.free...),
		live:  a.live,
	}
	copy(c.slots, a.slots)
	if copyValue != nil {
		for i := range c.slots {
			if c.slots[i].live {
				c.slots[i].value = copyValue(&a.slots[i].value)
			}
		}
	}
	return c
}

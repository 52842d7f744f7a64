// Package liveness provides generation-tagged handles used by the weak
// messenger variant to track recipient lifetimes explicitly.
//
// Go has no collector-driven weak reference the broker could observe
// deterministically, so recipient death is an explicit signal: the
// application attaches a recipient to an arena, holds the returned handle,
// and releases it when the recipient is destroyed. Releasing bumps the
// slot's generation, so every handle minted before the release fails its
// liveness check from then on. Slots are recycled through a free list.
package liveness

import "sync"

// Handle is a small copyable reference to an arena slot. The zero Handle is
// never alive.
type Handle struct {
	slot uint32
	gen  uint32
}

type slot struct {
	gen   uint32
	value any
	live  bool
}

// Arena owns the slot storage behind a set of handles. All methods are safe
// for concurrent use.
type Arena struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	count int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Attach stores the value and returns a handle for it. The arena keeps the
// only broker-side reference to the value; Release drops it.
func (a *Arena) Attach(value any) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	s.value = value
	s.live = true
	a.count++

	return Handle{slot: idx, gen: s.gen}
}

// Release marks the handle's slot dead, drops the stored value, and recycles
// the slot. It reports whether the handle was alive. Releasing twice is a
// safe no-op.
func (a *Arena) Release(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.aliveLocked(h) {
		return false
	}

	s := &a.slots[h.slot]
	s.value = nil
	s.live = false
	a.free = append(a.free, h.slot)
	a.count--
	return true
}

// Get returns the value behind the handle if it is still alive.
func (a *Arena) Get(h Handle) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.aliveLocked(h) {
		return nil, false
	}
	return a.slots[h.slot].value, true
}

// Alive reports whether the handle's target has not been released.
func (a *Arena) Alive(h Handle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.aliveLocked(h)
}

func (a *Arena) aliveLocked(h Handle) bool {
	if int(h.slot) >= len(a.slots) {
		return false
	}
	s := a.slots[h.slot]
	return s.live && s.gen == h.gen
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Reset releases every slot at once. Slot storage is kept so generation tags
// stay monotone and pre-reset handles can never match a recycled slot.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.free = a.free[:0]
	for i := range a.slots {
		s := &a.slots[i]
		s.value = nil
		s.live = false
		a.free = append(a.free, uint32(i))
	}
	a.count = 0
}

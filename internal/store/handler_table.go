package store

import (
	"errors"
	"sort"
	"sync"
)

// ErrDuplicateEntry is returned by Insert when the (recipient, token) key is
// already present in the table.
var ErrDuplicateEntry = errors.New("store: entry already exists")

// Entry is one registration row as seen by Snapshot.
type Entry[K comparable, H any] struct {
	Recipient K
	Handler   H
}

type tableKey[K comparable] struct {
	recipient K
	token     any
}

type tableSlot[H any] struct {
	handler H
	seq     uint64
}

// HandlerTable stores the registrations for a single message type, keyed by
// (recipient key, channel token). It is safe for concurrent use; compound
// operations spanning several tables are serialized by the owning messenger.
type HandlerTable[K comparable, H any] struct {
	mu      sync.RWMutex
	entries map[tableKey[K]]tableSlot[H]
	nextSeq uint64
}

// NewHandlerTable creates an empty handler table.
func NewHandlerTable[K comparable, H any]() *HandlerTable[K, H] {
	return &HandlerTable[K, H]{
		entries: make(map[tableKey[K]]tableSlot[H]),
	}
}

// Insert adds a registration. It fails with ErrDuplicateEntry when the key is
// already present, leaving the table untouched.
func (t *HandlerTable[K, H]) Insert(recipient K, token any, handler H) error {
	key := tableKey[K]{recipient: recipient, token: token}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; exists {
		return ErrDuplicateEntry
	}

	t.nextSeq++
	t.entries[key] = tableSlot[H]{handler: handler, seq: t.nextSeq}
	return nil
}

// Remove deletes a registration if present and reports whether it did.
// Removing an absent key is a no-op.
func (t *HandlerTable[K, H]) Remove(recipient K, token any) bool {
	key := tableKey[K]{recipient: recipient, token: token}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists {
		return false
	}
	delete(t.entries, key)
	return true
}

// Get looks up the handler registered for (recipient, token).
func (t *HandlerTable[K, H]) Get(recipient K, token any) (H, bool) {
	key := tableKey[K]{recipient: recipient, token: token}

	t.mu.RLock()
	defer t.mu.RUnlock()

	slot, exists := t.entries[key]
	return slot.handler, exists
}

// Snapshot returns a stable point-in-time copy of every registration for the
// given token, ordered by insertion sequence. Mutating the table afterwards
// does not affect a snapshot already taken.
func (t *HandlerTable[K, H]) Snapshot(token any) []Entry[K, H] {
	t.mu.RLock()
	type row struct {
		entry Entry[K, H]
		seq   uint64
	}
	rows := make([]row, 0, len(t.entries))
	for key, slot := range t.entries {
		if key.token == token {
			rows = append(rows, row{
				entry: Entry[K, H]{Recipient: key.recipient, Handler: slot.handler},
				seq:   slot.seq,
			})
		}
	}
	t.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	entries := make([]Entry[K, H], len(rows))
	for i, r := range rows {
		entries[i] = r.entry
	}
	return entries
}

// RemoveWhere deletes every registration whose recipient key the predicate
// reports dead, returning the number removed. Used by sweep passes.
func (t *HandlerTable[K, H]) RemoveWhere(dead func(K) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key := range t.entries {
		if dead(key.recipient) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// CountWhere returns the number of registrations whose recipient key matches
// the predicate, without mutating the table.
func (t *HandlerTable[K, H]) CountWhere(match func(K) bool) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for key := range t.entries {
		if match(key.recipient) {
			n++
		}
	}
	return n
}

// Len returns the number of registrations in the table.
func (t *HandlerTable[K, H]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Empty reports whether the table has no registrations left.
func (t *HandlerTable[K, H]) Empty() bool {
	return t.Len() == 0
}

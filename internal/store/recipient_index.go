package store

import (
	"reflect"
	"sync"
)

// Channel identifies one broadcast channel: a message type plus a token.
type Channel struct {
	Type  reflect.Type
	Token any
}

// RecipientIndex is the secondary index from a recipient key to the set of
// channels it is registered on. It lets the messenger unregister a recipient
// in bulk without scanning every handler table.
type RecipientIndex[K comparable] struct {
	mu   sync.RWMutex
	rows map[K]map[Channel]struct{}
}

// NewRecipientIndex creates an empty index.
func NewRecipientIndex[K comparable]() *RecipientIndex[K] {
	return &RecipientIndex[K]{
		rows: make(map[K]map[Channel]struct{}),
	}
}

// Track records that the recipient holds a registration on the channel.
// Called after every successful table insert.
func (x *RecipientIndex[K]) Track(recipient K, ch Channel) {
	x.mu.Lock()
	defer x.mu.Unlock()

	row, ok := x.rows[recipient]
	if !ok {
		row = make(map[Channel]struct{})
		x.rows[recipient] = row
	}
	row[ch] = struct{}{}
}

// Forget removes one channel from the recipient's row, trimming the row when
// it becomes empty. Idempotent.
func (x *RecipientIndex[K]) Forget(recipient K, ch Channel) {
	x.mu.Lock()
	defer x.mu.Unlock()

	row, ok := x.rows[recipient]
	if !ok {
		return
	}
	delete(row, ch)
	if len(row) == 0 {
		delete(x.rows, recipient)
	}
}

// ForgetAll drops the recipient's entire row and returns the channels it held.
func (x *RecipientIndex[K]) ForgetAll(recipient K) []Channel {
	x.mu.Lock()
	defer x.mu.Unlock()

	row, ok := x.rows[recipient]
	if !ok {
		return nil
	}
	channels := make([]Channel, 0, len(row))
	for ch := range row {
		channels = append(channels, ch)
	}
	delete(x.rows, recipient)
	return channels
}

// ForgetToken drops the recipient's registrations scoped to one token and
// returns the channels removed, trimming the row when it becomes empty.
func (x *RecipientIndex[K]) ForgetToken(recipient K, token any) []Channel {
	x.mu.Lock()
	defer x.mu.Unlock()

	row, ok := x.rows[recipient]
	if !ok {
		return nil
	}
	var channels []Channel
	for ch := range row {
		if ch.Token == token {
			channels = append(channels, ch)
			delete(row, ch)
		}
	}
	if len(row) == 0 {
		delete(x.rows, recipient)
	}
	return channels
}

// Registrations returns the channels the recipient is registered on.
func (x *RecipientIndex[K]) Registrations(recipient K) []Channel {
	x.mu.RLock()
	defer x.mu.RUnlock()

	row, ok := x.rows[recipient]
	if !ok {
		return nil
	}
	channels := make([]Channel, 0, len(row))
	for ch := range row {
		channels = append(channels, ch)
	}
	return channels
}

// Contains reports whether the recipient holds any registration.
func (x *RecipientIndex[K]) Contains(recipient K) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	_, ok := x.rows[recipient]
	return ok
}

// Compact drops every row entry the predicate no longer considers live,
// bounding index memory to live registrations. Returns the number of rows
// removed entirely.
func (x *RecipientIndex[K]) Compact(live func(recipient K, ch Channel) bool) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := 0
	for recipient, row := range x.rows {
		for ch := range row {
			if !live(recipient, ch) {
				delete(row, ch)
			}
		}
		if len(row) == 0 {
			delete(x.rows, recipient)
			removed++
		}
	}
	return removed
}

// Len returns the number of recipients with at least one registration.
func (x *RecipientIndex[K]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.rows)
}

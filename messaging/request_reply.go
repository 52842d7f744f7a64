package messaging

import "sync"

// RequestMessage carries a single response back to its sender over an
// ordinary broadcast: a handler calls Reply, the sender reads Response after
// Send returns. At most one handler may reply; a second Reply panics with
// ErrAlreadyReplied.
//
//	price := messaging.Send(m, &messaging.RequestMessage[int]{}).MustResponse()
type RequestMessage[T any] struct {
	mu       sync.Mutex
	response T
	received bool
}

// Reply records the response. Panics if a response was already recorded.
func (r *RequestMessage[T]) Reply(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.received {
		panic(ErrAlreadyReplied)
	}
	r.response = value
	r.received = true
}

// Response returns the recorded response and whether one was received.
func (r *RequestMessage[T]) Response() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response, r.received
}

// HasResponse reports whether any handler replied.
func (r *RequestMessage[T]) HasResponse() bool {
	_, ok := r.Response()
	return ok
}

// MustResponse returns the response or panics with ErrNoResponse when no
// handler replied, for call sites where a missing responder is a wiring bug.
func (r *RequestMessage[T]) MustResponse() T {
	v, ok := r.Response()
	if !ok {
		panic(ErrNoResponse)
	}
	return v
}

// CollectionRequestMessage accumulates responses from every handler that
// chooses to reply, in reply order.
type CollectionRequestMessage[T any] struct {
	mu        sync.Mutex
	responses []T
}

// Reply appends one response.
func (c *CollectionRequestMessage[T]) Reply(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, value)
}

// Responses returns a copy of the responses received so far.
func (c *CollectionRequestMessage[T]) Responses() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.responses))
	copy(out, c.responses)
	return out
}

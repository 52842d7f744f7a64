package messaging

import (
	"fmt"
	"reflect"
)

// Handler receives a single broadcast message for one recipient. Handlers run
// synchronously on the sender's goroutine; a panic inside a handler aborts
// the remaining dispatch of that send and surfaces to the sender.
type Handler interface {
	Handle(recipient any, msg any)
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(recipient any, msg any)

// Handle implements Handler
func (f HandlerFunc) Handle(recipient any, msg any) {
	f(recipient, msg)
}

// HandlerOf adapts a typed function to a Handler. The wrapper asserts the
// delivered message to T; a mismatch is a registration bug and panics.
func HandlerOf[T any](fn func(recipient any, msg T)) Handler {
	return HandlerFunc(func(recipient any, msg any) {
		typed, ok := msg.(T)
		if !ok {
			panic(fmt.Sprintf("messaging: handler for %v received %T", reflect.TypeOf((*T)(nil)).Elem(), msg))
		}
		fn(recipient, typed)
	})
}

// Subscription declares one message channel a recipient wants to receive on.
type Subscription struct {
	MessageType reflect.Type
	Handler     Handler
}

// SubscriptionFor builds a Subscription from a typed handler function.
func SubscriptionFor[T any](fn func(recipient any, msg T)) Subscription {
	return Subscription{
		MessageType: reflect.TypeOf((*T)(nil)).Elem(),
		Handler:     HandlerOf(fn),
	}
}

// Subscriber is the capability interface behind RegisterAll. A recipient
// enumerates the subscriptions it handles; the list is consulted once at
// registration time. Recipients that subscribe to nothing are valid.
type Subscriber interface {
	Subscriptions() []Subscription
}

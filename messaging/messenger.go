package messaging

import (
	"sync"
)

// Messenger is the broker surface shared by StrongMessenger and
// WeakMessenger. Recipients and tokens must be comparable values; recipients
// are usually pointers so that identity is reference identity.
//
// All operations are safe for concurrent use. Send dispatches synchronously
// on the caller's goroutine against a point-in-time snapshot of the channel;
// no broker lock is held while a handler runs, so handlers may re-enter the
// messenger freely without affecting the in-flight snapshot.
type Messenger interface {
	// Register subscribes recipient to messages of messageType on the
	// default channel. messageType is a prototype value or a reflect.Type.
	// Registering the same (recipient, type, token) twice fails with
	// ErrDuplicateRegistration.
	Register(recipient any, messageType any, handler Handler) error

	// RegisterWithToken subscribes recipient on the channel scoped by token.
	RegisterWithToken(recipient any, messageType any, token any, handler Handler) error

	// RegisterAll registers every subscription the recipient declares via
	// the Subscriber interface on the default channel. A recipient declaring
	// no subscriptions is not an error.
	RegisterAll(recipient any) error

	// RegisterAllWithToken is RegisterAll scoped to one token.
	RegisterAllWithToken(recipient any, token any) error

	// Unregister removes the recipient's default-channel registration for
	// messageType. Removing an absent registration is a no-op.
	Unregister(recipient any, messageType any)

	// UnregisterWithToken removes one exact (recipient, type, token)
	// registration. Idempotent.
	UnregisterWithToken(recipient any, messageType any, token any)

	// UnregisterAll removes every registration held by the recipient.
	UnregisterAll(recipient any)

	// UnregisterAllWithToken removes the recipient's registrations scoped to
	// one token, leaving other tokens in place.
	UnregisterAllWithToken(recipient any, token any)

	// IsRegistered reports whether the exact default-channel registration is
	// live.
	IsRegistered(recipient any, messageType any) bool

	// IsRegisteredWithToken reports whether the exact (recipient, type,
	// token) registration is live.
	IsRegisteredWithToken(recipient any, messageType any, token any) bool

	// Send broadcasts msg on the default channel keyed by msg's dynamic type
	// and returns msg for fluent call sites. Handlers run in snapshot order.
	Send(msg any) any

	// SendWithToken broadcasts msg on the channel scoped by token.
	SendWithToken(msg any, token any) any

	// Reset drops every registration. Intended for test teardown.
	Reset()

	// Cleanup reclaims bookkeeping for dead registrations. It never changes
	// which registrations are considered live: a no-op on StrongMessenger, a
	// forced synchronous sweep on WeakMessenger.
	Cleanup()

	// Stats returns a point-in-time view of broker occupancy.
	Stats() Stats
}

// Stats is a snapshot of broker occupancy, for diagnostics and tests.
type Stats struct {
	// MessageTypes is the number of message types with at least one
	// registration row, including rows awaiting a sweep.
	MessageTypes int

	// Registrations is the number of live registrations.
	Registrations int

	// Recipients is the number of recipients known to the broker: holding at
	// least one live registration on StrongMessenger, attached on
	// WeakMessenger.
	Recipients int

	// PendingSweep is the number of dead registration rows awaiting
	// reclamation. Always zero on StrongMessenger.
	PendingSweep int
}

var (
	defaultStrongOnce sync.Once
	defaultStrong     *StrongMessenger

	defaultWeakOnce sync.Once
	defaultWeak     *WeakMessenger
)

// Default returns the process-wide StrongMessenger, created on first use.
func Default() *StrongMessenger {
	defaultStrongOnce.Do(func() {
		defaultStrong = NewStrongMessenger()
	})
	return defaultStrong
}

// DefaultWeak returns the process-wide WeakMessenger, created on first use.
func DefaultWeak() *WeakMessenger {
	defaultWeakOnce.Do(func() {
		defaultWeak = NewWeakMessenger()
	})
	return defaultWeak
}

package messaging

import "reflect"

// The functions below are compile-time-typed sugar over the reflect.Type
// keyed facade. The message type parameter must be the exact dynamic type
// that will be sent: register with *ChargeCompleted when senders pass
// &ChargeCompleted{}.

// RegisterHandler registers a typed handler on the default channel.
func RegisterHandler[T any](m Messenger, recipient any, fn func(recipient any, msg T)) error {
	return m.RegisterWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), DefaultToken, HandlerOf(fn))
}

// RegisterHandlerWithToken registers a typed handler on the channel scoped
// by token.
func RegisterHandlerWithToken[T any](m Messenger, recipient any, token any, fn func(recipient any, msg T)) error {
	return m.RegisterWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), token, HandlerOf(fn))
}

// Unregister removes the recipient's typed default-channel registration.
func Unregister[T any](m Messenger, recipient any) {
	m.UnregisterWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), DefaultToken)
}

// UnregisterWithToken removes the recipient's typed registration for token.
func UnregisterWithToken[T any](m Messenger, recipient any, token any) {
	m.UnregisterWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), token)
}

// IsRegistered reports whether the typed default-channel registration is
// live.
func IsRegistered[T any](m Messenger, recipient any) bool {
	return m.IsRegisteredWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), DefaultToken)
}

// IsRegisteredWithToken reports whether the typed registration for token is
// live.
func IsRegisteredWithToken[T any](m Messenger, recipient any, token any) bool {
	return m.IsRegisteredWithToken(recipient, reflect.TypeOf((*T)(nil)).Elem(), token)
}

// Send broadcasts msg on the default channel and returns it typed.
func Send[T any](m Messenger, msg T) T {
	m.Send(msg)
	return msg
}

// SendWithToken broadcasts msg on the channel scoped by token and returns it
// typed.
func SendWithToken[T any](m Messenger, msg T, token any) T {
	m.SendWithToken(msg, token)
	return msg
}

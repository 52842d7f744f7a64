// Package messaging provides a typed, in-process publish/subscribe broker
// that decouples message producers from consumers without direct references
// between them.
//
// This package implements the primary broker surface:
//   - Messenger: the operation contract shared by both broker variants
//   - StrongMessenger: owning registrations that persist until explicitly removed
//   - WeakMessenger: non-owning registrations reclaimed after an explicit Detach
//   - Handler interfaces: Handler, HandlerFunc, and the typed HandlerOf adapter
//   - Subscriber: capability interface driving RegisterAll
//   - RequestMessage / CollectionRequestMessage: request/reply over broadcast
//
// Key features:
//   - Channels keyed by (message type, token): one recipient may hold
//     independent registrations per token for the same message type
//   - Duplicate registration detection with no partial mutation on failure
//   - Snapshot dispatch: Send iterates a point-in-time copy of the channel,
//     so handlers may register, unregister, or send re-entrantly without
//     affecting the in-flight broadcast
//   - Fail-fast delivery: a handler panic aborts the remaining dispatch and
//     surfaces to the sender; this is not an error-isolating event bus
//   - Thread-safe throughout; no broker lock is held while handlers run
//
// Example usage:
//
//	type ChargeCompleted struct {
//		Amount int64
//	}
//
//	m := messaging.NewStrongMessenger()
//
//	// Register a typed handler on the default channel
//	err := messaging.RegisterHandler(m, receipts,
//		func(recipient any, msg *ChargeCompleted) {
//			recipient.(*ReceiptPrinter).Print(msg.Amount)
//		})
//
//	// Broadcast; every registered handler runs synchronously
//	messaging.Send(m, &ChargeCompleted{Amount: 4200})
//
//	// Tear down
//	m.UnregisterAll(receipts)
//
// WeakMessenger carries the same surface plus Detach, the explicit signal
// that a recipient is gone; see the type documentation for the ownership
// model and its trade-offs.
package messaging

package messaging

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/glimte/messenger-go/internal/store"
)

// StrongMessenger is the owning broker variant: it holds ordinary references
// to recipients, so a registration keeps its recipient reachable until it is
// explicitly unregistered. Simple and predictable, but a forgotten
// unregister leaks the recipient for the broker's lifetime.
type StrongMessenger struct {
	mu     sync.RWMutex
	tables map[reflect.Type]*store.HandlerTable[any, Handler]
	index  *store.RecipientIndex[any]
	logger *slog.Logger
}

// StrongOption configures a StrongMessenger.
type StrongOption func(*StrongMessenger)

// WithStrongLogger sets the logger
func WithStrongLogger(logger *slog.Logger) StrongOption {
	return func(m *StrongMessenger) {
		m.logger = logger
	}
}

// NewStrongMessenger creates an empty owning messenger.
func NewStrongMessenger(options ...StrongOption) *StrongMessenger {
	m := &StrongMessenger{
		tables: make(map[reflect.Type]*store.HandlerTable[any, Handler]),
		index:  store.NewRecipientIndex[any](),
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m
}

// Register implements Messenger
func (m *StrongMessenger) Register(recipient any, messageType any, handler Handler) error {
	return m.RegisterWithToken(recipient, messageType, DefaultToken, handler)
}

// RegisterWithToken implements Messenger
func (m *StrongMessenger) RegisterWithToken(recipient any, messageType any, token any, handler Handler) error {
	if recipient == nil {
		return ErrNilRecipient
	}
	if handler == nil {
		return ErrNilHandler
	}
	msgType, err := messageTypeKey(messageType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[msgType]
	if !ok {
		table = store.NewHandlerTable[any, Handler]()
		m.tables[msgType] = table
	}

	if err := table.Insert(recipient, token, handler); err != nil {
		return fmt.Errorf("%w: %s on token %s", ErrDuplicateRegistration, msgType, describeToken(token))
	}
	m.index.Track(recipient, store.Channel{Type: msgType, Token: token})

	m.logger.Debug("registered handler",
		"messageType", msgType.String(),
		"token", describeToken(token),
	)

	return nil
}

// RegisterAll implements Messenger
func (m *StrongMessenger) RegisterAll(recipient any) error {
	return m.RegisterAllWithToken(recipient, DefaultToken)
}

// RegisterAllWithToken implements Messenger
func (m *StrongMessenger) RegisterAllWithToken(recipient any, token any) error {
	return registerDeclared(m, recipient, token)
}

// Unregister implements Messenger
func (m *StrongMessenger) Unregister(recipient any, messageType any) {
	m.UnregisterWithToken(recipient, messageType, DefaultToken)
}

// UnregisterWithToken implements Messenger
func (m *StrongMessenger) UnregisterWithToken(recipient any, messageType any, token any) {
	msgType, err := messageTypeKey(messageType)
	if err != nil || recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[msgType]
	if !ok {
		return
	}
	if table.Remove(recipient, token) {
		m.index.Forget(recipient, store.Channel{Type: msgType, Token: token})
		if table.Empty() {
			delete(m.tables, msgType)
		}
	}
}

// UnregisterAll implements Messenger
func (m *StrongMessenger) UnregisterAll(recipient any) {
	if recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeChannels(recipient, m.index.ForgetAll(recipient))
}

// UnregisterAllWithToken implements Messenger
func (m *StrongMessenger) UnregisterAllWithToken(recipient any, token any) {
	if recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeChannels(recipient, m.index.ForgetToken(recipient, token))
}

// removeChannels drops the recipient's table entries for the given channels,
// trimming tables that become empty. Caller holds m.mu.
func (m *StrongMessenger) removeChannels(recipient any, channels []store.Channel) {
	for _, ch := range channels {
		table, ok := m.tables[ch.Type]
		if !ok {
			continue
		}
		table.Remove(recipient, ch.Token)
		if table.Empty() {
			delete(m.tables, ch.Type)
		}
	}
}

// IsRegistered implements Messenger
func (m *StrongMessenger) IsRegistered(recipient any, messageType any) bool {
	return m.IsRegisteredWithToken(recipient, messageType, DefaultToken)
}

// IsRegisteredWithToken implements Messenger
func (m *StrongMessenger) IsRegisteredWithToken(recipient any, messageType any, token any) bool {
	msgType, err := messageTypeKey(messageType)
	if err != nil || recipient == nil {
		return false
	}

	m.mu.RLock()
	table, ok := m.tables[msgType]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	_, ok = table.Get(recipient, token)
	return ok
}

// Send implements Messenger
func (m *StrongMessenger) Send(msg any) any {
	return m.SendWithToken(msg, DefaultToken)
}

// SendWithToken implements Messenger. The channel is keyed by msg's dynamic
// type. Handlers run on the caller's goroutine in snapshot order with no
// broker lock held; a handler panic aborts the remaining dispatch and
// propagates to the caller.
func (m *StrongMessenger) SendWithToken(msg any, token any) any {
	if msg == nil {
		panic("messaging: cannot send nil message")
	}
	msgType := reflect.TypeOf(msg)

	m.mu.RLock()
	table, ok := m.tables[msgType]
	m.mu.RUnlock()
	if !ok {
		return msg
	}

	snapshot := table.Snapshot(token)
	for _, entry := range snapshot {
		entry.Handler.Handle(entry.Recipient, msg)
	}

	m.logger.Debug("message dispatched",
		"messageType", msgType.String(),
		"messageId", messageID(msg),
		"handlerCount", len(snapshot),
	)
	return msg
}

// Reset implements Messenger
func (m *StrongMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables = make(map[reflect.Type]*store.HandlerTable[any, Handler])
	m.index = store.NewRecipientIndex[any]()
}

// Cleanup implements Messenger. The owning variant has no dead entries to
// reclaim, so this never alters observable state; it exists for surface
// symmetry with WeakMessenger.
func (m *StrongMessenger) Cleanup() {}

// Stats implements Messenger
func (m *StrongMessenger) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		MessageTypes: len(m.tables),
		Recipients:   m.index.Len(),
	}
	for _, table := range m.tables {
		s.Registrations += table.Len()
	}
	return s
}

// registerDeclared registers every subscription a recipient declares through
// the Subscriber interface. Shared by both messenger variants.
func registerDeclared(m Messenger, recipient any, token any) error {
	if recipient == nil {
		return ErrNilRecipient
	}

	sub, ok := recipient.(Subscriber)
	if !ok {
		return nil
	}

	for _, s := range sub.Subscriptions() {
		if err := m.RegisterWithToken(recipient, s.MessageType, token, s.Handler); err != nil {
			return err
		}
	}
	return nil
}

package messaging

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/glimte/messenger-go/internal/liveness"
	"github.com/glimte/messenger-go/internal/store"
)

// defaultSweepThreshold is the number of broker operations between
// opportunistic sweeps of dead registration rows.
const defaultSweepThreshold = 64

// WeakMessenger is the non-owning broker variant. Tables are keyed by
// generation-tagged liveness handles instead of recipient values, and the
// application signals recipient destruction with Detach. From that moment
// the broker's reference to the recipient is dropped, the recipient's
// registrations stop being visible to IsRegistered and Send, and the stale
// rows left in the tables are reclaimed lazily: either by an opportunistic
// sweep after a threshold of operations, or synchronously via Cleanup.
//
// Portability note: Go exposes no collector callback the broker could use to
// observe a recipient becoming unreachable, so death is an explicit protocol
// rather than an ambient one. Between the last unregister and Detach the
// broker still holds the recipient; an application that never calls Detach
// gets StrongMessenger ownership semantics. This is the largest behavioral
// difference from brokers built on collector-driven weak references.
//
// A recipient stays attached until Detach or Reset even when its last
// registration is removed: unregistration is snapshot-isolated bookkeeping,
// only Detach makes a recipient invisible to an in-flight send.
type WeakMessenger struct {
	mu             sync.RWMutex
	arena          *liveness.Arena
	handles        map[any]liveness.Handle
	tables         map[reflect.Type]*store.HandlerTable[liveness.Handle, Handler]
	index          *store.RecipientIndex[liveness.Handle]
	ops            int
	sweepThreshold int
	logger         *slog.Logger
}

// WeakOption configures a WeakMessenger.
type WeakOption func(*WeakMessenger)

// WithWeakLogger sets the logger
func WithWeakLogger(logger *slog.Logger) WeakOption {
	return func(m *WeakMessenger) {
		m.logger = logger
	}
}

// WithSweepThreshold sets how many broker operations may elapse before an
// opportunistic sweep of dead rows. Values below 1 sweep on every operation.
func WithSweepThreshold(ops int) WeakOption {
	return func(m *WeakMessenger) {
		m.sweepThreshold = ops
	}
}

// NewWeakMessenger creates an empty non-owning messenger.
func NewWeakMessenger(options ...WeakOption) *WeakMessenger {
	m := &WeakMessenger{
		arena:          liveness.NewArena(),
		handles:        make(map[any]liveness.Handle),
		tables:         make(map[reflect.Type]*store.HandlerTable[liveness.Handle, Handler]),
		index:          store.NewRecipientIndex[liveness.Handle](),
		sweepThreshold: defaultSweepThreshold,
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m
}

// Register implements Messenger
func (m *WeakMessenger) Register(recipient any, messageType any, handler Handler) error {
	return m.RegisterWithToken(recipient, messageType, DefaultToken, handler)
}

// RegisterWithToken implements Messenger
func (m *WeakMessenger) RegisterWithToken(recipient any, messageType any, token any, handler Handler) error {
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

	handle, ok := m.handles[recipient]
	if !ok {
		handle = m.arena.Attach(recipient)
		m.handles[recipient] = handle
	}

	table, ok := m.tables[msgType]
	if !ok {
		table = store.NewHandlerTable[liveness.Handle, Handler]()
		m.tables[msgType] = table
	}

	if err := table.Insert(handle, token, handler); err != nil {
		return fmt.Errorf("%w: %s on token %s", ErrDuplicateRegistration, msgType, describeToken(token))
	}
	m.index.Track(handle, store.Channel{Type: msgType, Token: token})

	m.logger.Debug("registered handler",
		"messageType", msgType.String(),
		"token", describeToken(token),
	)

	m.countOpLocked()
	return nil
}

// RegisterAll implements Messenger
func (m *WeakMessenger) RegisterAll(recipient any) error {
	return m.RegisterAllWithToken(recipient, DefaultToken)
}

// RegisterAllWithToken implements Messenger
func (m *WeakMessenger) RegisterAllWithToken(recipient any, token any) error {
	return registerDeclared(m, recipient, token)
}

// Unregister implements Messenger
func (m *WeakMessenger) Unregister(recipient any, messageType any) {
	m.UnregisterWithToken(recipient, messageType, DefaultToken)
}

// UnregisterWithToken implements Messenger
func (m *WeakMessenger) UnregisterWithToken(recipient any, messageType any, token any) {
	msgType, err := messageTypeKey(messageType)
	if err != nil || recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[recipient]
	if !ok {
		return
	}
	table, ok := m.tables[msgType]
	if !ok {
		return
	}
	if table.Remove(handle, token) {
		m.index.Forget(handle, store.Channel{Type: msgType, Token: token})
		if table.Empty() {
			delete(m.tables, msgType)
		}
	}
	m.countOpLocked()
}

// UnregisterAll implements Messenger
func (m *WeakMessenger) UnregisterAll(recipient any) {
	if recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[recipient]
	if !ok {
		return
	}
	m.removeChannelsLocked(handle, m.index.ForgetAll(handle))
	m.countOpLocked()
}

// UnregisterAllWithToken implements Messenger
func (m *WeakMessenger) UnregisterAllWithToken(recipient any, token any) {
	if recipient == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[recipient]
	if !ok {
		return
	}
	m.removeChannelsLocked(handle, m.index.ForgetToken(handle, token))
	m.countOpLocked()
}

// Detach drops the broker's reference to the recipient and marks every
// handle minted for it dead. The recipient's registrations become invisible
// immediately; their table rows are reclaimed on the next sweep or Cleanup.
// Detaching an unknown recipient is a no-op. Reports whether the recipient
// was attached.
func (m *WeakMessenger) Detach(recipient any) bool {
	if recipient == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[recipient]
	if !ok {
		return false
	}
	delete(m.handles, recipient)
	m.arena.Release(handle)

	m.logger.Debug("detached recipient", "pendingRows", len(m.index.Registrations(handle)))

	m.countOpLocked()
	return true
}

// removeChannelsLocked drops the handle's table rows for the given channels,
// trimming tables that become empty. Caller holds m.mu.
func (m *WeakMessenger) removeChannelsLocked(handle liveness.Handle, channels []store.Channel) {
	for _, ch := range channels {
		table, ok := m.tables[ch.Type]
		if !ok {
			continue
		}
		table.Remove(handle, ch.Token)
		if table.Empty() {
			delete(m.tables, ch.Type)
		}
	}
}

// IsRegistered implements Messenger
func (m *WeakMessenger) IsRegistered(recipient any, messageType any) bool {
	return m.IsRegisteredWithToken(recipient, messageType, DefaultToken)
}

// IsRegisteredWithToken implements Messenger
func (m *WeakMessenger) IsRegisteredWithToken(recipient any, messageType any, token any) bool {
	msgType, err := messageTypeKey(messageType)
	if err != nil || recipient == nil {
		return false
	}

	m.mu.RLock()
	handle, attached := m.handles[recipient]
	table, ok := m.tables[msgType]
	m.mu.RUnlock()
	if !attached || !ok {
		return false
	}

	_, ok = table.Get(handle, token)
	return ok
}

// Send implements Messenger
func (m *WeakMessenger) Send(msg any) any {
	return m.SendWithToken(msg, DefaultToken)
}

// SendWithToken implements Messenger. Rows whose recipient was detached
// between snapshot and invocation are skipped silently; rows found dead at
// snapshot time additionally hasten the next opportunistic sweep.
func (m *WeakMessenger) SendWithToken(msg any, token any) any {
	if msg == nil {
		panic("messaging: cannot send nil message")
	}
	msgType := reflect.TypeOf(msg)

	m.mu.RLock()
	table, ok := m.tables[msgType]
	m.mu.RUnlock()
	if !ok {
		m.maybeSweep(1)
		return msg
	}

	snapshot := table.Snapshot(token)
	stale := 0
	for _, entry := range snapshot {
		recipient, alive := m.arena.Get(entry.Recipient)
		if !alive {
			stale++
			continue
		}
		entry.Handler.Handle(recipient, msg)
	}

	m.logger.Debug("message dispatched",
		"messageType", msgType.String(),
		"messageId", messageID(msg),
		"handlerCount", len(snapshot)-stale,
	)

	m.maybeSweep(1 + stale)
	return msg
}

// Reset implements Messenger
func (m *WeakMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.arena.Reset()
	m.handles = make(map[any]liveness.Handle)
	m.tables = make(map[reflect.Type]*store.HandlerTable[liveness.Handle, Handler])
	m.index = store.NewRecipientIndex[liveness.Handle]()
	m.ops = 0
}

// Cleanup implements Messenger. It forces a full synchronous sweep of dead
// rows across every table and the recipient index. Which registrations are
// live never changes; only bookkeeping for already-dead ones is reclaimed.
func (m *WeakMessenger) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
}

// Stats implements Messenger. Registrations counts only live rows; rows
// whose handle is dead but not yet swept show up under PendingSweep.
func (m *WeakMessenger) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		MessageTypes: len(m.tables),
		Recipients:   len(m.handles),
	}
	for _, table := range m.tables {
		dead := table.CountWhere(func(h liveness.Handle) bool { return !m.arena.Alive(h) })
		s.Registrations += table.Len() - dead
		s.PendingSweep += dead
	}
	return s
}

// countOpLocked bumps the operation counter and sweeps once the threshold is
// crossed. Caller holds m.mu for writing.
func (m *WeakMessenger) countOpLocked() {
	m.ops++
	if m.ops >= m.sweepThreshold {
		m.sweepLocked()
	}
}

// maybeSweep is countOpLocked for callers not holding the lock; weight lets
// a send that observed stale rows pull the sweep forward.
func (m *WeakMessenger) maybeSweep(weight int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ops += weight
	if m.ops >= m.sweepThreshold {
		m.sweepLocked()
	}
}

// sweepLocked removes every table row and index row whose handle is dead and
// trims tables left empty. Caller holds m.mu for writing.
func (m *WeakMessenger) sweepLocked() {
	removed := 0
	for msgType, table := range m.tables {
		removed += table.RemoveWhere(func(h liveness.Handle) bool { return !m.arena.Alive(h) })
		if table.Empty() {
			delete(m.tables, msgType)
		}
	}
	compacted := m.index.Compact(func(h liveness.Handle, ch store.Channel) bool {
		if !m.arena.Alive(h) {
			return false
		}
		table, ok := m.tables[ch.Type]
		if !ok {
			return false
		}
		_, ok = table.Get(h, ch.Token)
		return ok
	})
	m.ops = 0

	if removed > 0 || compacted > 0 {
		m.logger.Debug("swept dead registrations",
			"rowsRemoved", removed,
			"recipientsCompacted", compacted,
		)
	}
}

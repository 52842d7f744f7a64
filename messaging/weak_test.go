package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeakMessengerDetach(t *testing.T) {
	t.Run("detached recipient is immediately invisible", func(t *testing.T) {
		m := NewWeakMessenger()
		r := &counterRecipient{}
		require.NoError(t, RegisterHandler(m, r, func(recipient any, msg *chargeCompleted) {
			recipient.(*counterRecipient).hits++
		}))

		assert.True(t, m.Detach(r))

		assert.False(t, IsRegistered[*chargeCompleted](m, r))
		m.Send(&chargeCompleted{})
		assert.Equal(t, 0, r.hits)
	})

	t.Run("Detach of unknown recipient is a no-op", func(t *testing.T) {
		m := NewWeakMessenger()

		assert.False(t, m.Detach(&counterRecipient{}))
		assert.False(t, m.Detach(nil))
	})

	t.Run("Detach leaves other recipients untouched", func(t *testing.T) {
		m := NewWeakMessenger()
		gone := &counterRecipient{}
		alive := &counterRecipient{}
		hit := func(recipient any, msg *chargeCompleted) { recipient.(*counterRecipient).hits++ }
		require.NoError(t, RegisterHandler(m, gone, hit))
		require.NoError(t, RegisterHandler(m, alive, hit))

		m.Detach(gone)
		m.Send(&chargeCompleted{})

		assert.Equal(t, 0, gone.hits)
		assert.Equal(t, 1, alive.hits)
	})

	t.Run("detached recipient can attach and register again", func(t *testing.T) {
		m := NewWeakMessenger()
		r := &counterRecipient{}
		hit := func(recipient any, msg *chargeCompleted) { recipient.(*counterRecipient).hits++ }
		require.NoError(t, RegisterHandler(m, r, hit))
		m.Detach(r)

		require.NoError(t, RegisterHandler(m, r, hit))

		assert.True(t, IsRegistered[*chargeCompleted](m, r))
		m.Send(&chargeCompleted{})
		assert.Equal(t, 1, r.hits)
	})

	t.Run("recipient detached from inside a handler is skipped for the rest of the send", func(t *testing.T) {
		m := NewWeakMessenger()
		first := &counterRecipient{}
		victim := &counterRecipient{}

		require.NoError(t, RegisterHandler(m, first, func(recipient any, msg *chargeCompleted) {
			recipient.(*counterRecipient).hits++
			m.Detach(victim)
		}))
		require.NoError(t, RegisterHandler(m, victim, func(recipient any, msg *chargeCompleted) {
			recipient.(*counterRecipient).hits++
		}))

		assert.NotPanics(t, func() { m.Send(&chargeCompleted{}) })
		assert.Equal(t, 1, first.hits)
		assert.Equal(t, 0, victim.hits)
	})
}

func TestWeakMessengerSweep(t *testing.T) {
	t.Run("Cleanup reclaims dead rows synchronously", func(t *testing.T) {
		m := NewWeakMessenger()
		r := &counterRecipient{}
		require.NoError(t, RegisterHandler(m, r, func(recipient any, msg *chargeCompleted) {}))
		require.NoError(t, RegisterHandlerWithToken(m, r, "tokenX", func(recipient any, msg *chargeCompleted) {}))
		m.Detach(r)

		assert.Equal(t, 2, m.Stats().PendingSweep)

		m.Cleanup()

		stats := m.Stats()
		assert.Equal(t, Stats{}, stats)
	})

	t.Run("operation threshold triggers an opportunistic sweep", func(t *testing.T) {
		m := NewWeakMessenger(WithSweepThreshold(1))
		r := &counterRecipient{}
		require.NoError(t, RegisterHandler(m, r, func(recipient any, msg *chargeCompleted) {}))
		m.Detach(r)

		// Any operation past the threshold sweeps the dead row.
		m.Send(&chargeCompleted{})

		assert.Equal(t, 0, m.Stats().PendingSweep)
		assert.Equal(t, 0, m.Stats().MessageTypes)
	})

	t.Run("sweep leaves live registrations alone", func(t *testing.T) {
		m := NewWeakMessenger(WithSweepThreshold(1))
		gone := &counterRecipient{}
		alive := &counterRecipient{}
		hit := func(recipient any, msg *chargeCompleted) { recipient.(*counterRecipient).hits++ }
		require.NoError(t, RegisterHandler(m, gone, hit))
		require.NoError(t, RegisterHandler(m, alive, hit))

		m.Detach(gone)
		m.Cleanup()

		assert.True(t, IsRegistered[*chargeCompleted](m, alive))
		m.Send(&chargeCompleted{})
		assert.Equal(t, 1, alive.hits)

		stats := m.Stats()
		assert.Equal(t, 1, stats.Registrations)
		assert.Equal(t, 0, stats.PendingSweep)
		assert.Equal(t, 1, stats.Recipients)
	})
}

func TestWeakMessengerStats(t *testing.T) {
	m := NewWeakMessenger()
	r := &counterRecipient{}
	other := &counterRecipient{}
	require.NoError(t, RegisterHandler(m, r, func(recipient any, msg *chargeCompleted) {}))
	require.NoError(t, RegisterHandler(m, other, func(recipient any, msg *invoicePaid) {}))

	stats := m.Stats()
	assert.Equal(t, 2, stats.MessageTypes)
	assert.Equal(t, 2, stats.Registrations)
	assert.Equal(t, 2, stats.Recipients)
	assert.Equal(t, 0, stats.PendingSweep)

	m.Detach(r)

	stats = m.Stats()
	assert.Equal(t, 1, stats.Registrations)
	assert.Equal(t, 1, stats.PendingSweep)
	assert.Equal(t, 1, stats.Recipients)
}

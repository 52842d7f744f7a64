// Package contracts provides optional envelope types for messages sent over
// the in-process broker. The broker itself accepts arbitrary Go values; an
// envelope adds a stable identity, a send timestamp, and correlation between
// a message and the messages it caused, for applications that log or trace
// message flows.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Addressed is implemented by messages that embed an Envelope.
type Addressed interface {
	MessageID() string
	SentAt() time.Time
	CorrelationID() string
}

// Envelope carries message identity. Embed it in a message struct and
// initialize with NewEnvelope:
//
//	type ChargeCompleted struct {
//		contracts.Envelope
//		Amount int64
//	}
//
//	msg := &ChargeCompleted{Envelope: contracts.NewEnvelope(), Amount: 4200}
type Envelope struct {
	ID          string    `json:"id"`
	Sent        time.Time `json:"sentAt"`
	Correlation string    `json:"correlationId,omitempty"`
}

// NewEnvelope creates an envelope with a generated ID and the current UTC
// time.
func NewEnvelope() Envelope {
	return Envelope{
		ID:   uuid.New().String(),
		Sent: time.Now().UTC(),
	}
}

// MessageID returns the message's unique ID.
func (e Envelope) MessageID() string {
	return e.ID
}

// SentAt returns the envelope creation time.
func (e Envelope) SentAt() time.Time {
	return e.Sent
}

// CorrelationID returns the ID of the message this one was sent in response
// to, or empty when uncorrelated.
func (e Envelope) CorrelationID() string {
	return e.Correlation
}

// CorrelateWith links this message to the one that caused it.
func (e *Envelope) CorrelateWith(parent Addressed) {
	e.Correlation = parent.MessageID()
}

package messaging

import (
	"errors"
)

var (
	// Registration errors
	ErrDuplicateRegistration = errors.New("messaging: recipient already registered for this message type and token")
	ErrNilRecipient          = errors.New("messaging: recipient cannot be nil")
	ErrNilHandler            = errors.New("messaging: handler cannot be nil")
	ErrNilMessageType        = errors.New("messaging: message type cannot be nil")

	// Request/reply errors
	ErrAlreadyReplied = errors.New("messaging: request message already has a response")
	ErrNoResponse     = errors.New("messaging: request message received no response")
)

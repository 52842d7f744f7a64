package messaging

import (
	"fmt"
	"reflect"

	"github.com/glimte/messenger-go/contracts"
)

// defaultToken is the unit value scoping registrations made without an
// explicit channel token.
type defaultToken struct{}

func (defaultToken) String() string { return "default" }

// DefaultToken is the channel token used by the Register/Unregister/Send
// convenience methods. Explicit-token calls may pass it to address the same
// channel. Tokens must be comparable values.
var DefaultToken = defaultToken{}

// messageTypeKey resolves a messageType argument to the reflect.Type keying
// its handler table. Callers may pass either a prototype value (typically a
// pointer, e.g. &ChargeCompleted{}) or a reflect.Type directly. The dynamic
// type of a sent message must match this key exactly.
func messageTypeKey(messageType any) (reflect.Type, error) {
	if messageType == nil {
		return nil, ErrNilMessageType
	}
	if t, ok := messageType.(reflect.Type); ok {
		return t, nil
	}
	return reflect.TypeOf(messageType), nil
}

// describeToken renders a token for log output.
func describeToken(token any) string {
	return fmt.Sprintf("%v", token)
}

// messageID extracts the envelope ID for log output; messages without an
// envelope log as anonymous.
func messageID(msg any) string {
	if addressed, ok := msg.(contracts.Addressed); ok {
		return addressed.MessageID()
	}
	return ""
}

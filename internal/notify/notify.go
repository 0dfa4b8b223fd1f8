// Package notify provides SMS notification delivery for alerts.
package notify

import (
	"context"
	"errors"
)

// Sentinel errors for notification delivery.
var (
	// ErrDeliveryFailed indicates the delivery provider rejected the message.
	ErrDeliveryFailed = errors.New("message delivery failed")
	// ErrProviderUnavailable indicates the delivery provider is unreachable or
	// the circuit breaker is open.
	ErrProviderUnavailable = errors.New("delivery provider unavailable")
	// ErrInvalidRecipient indicates the destination number is unusable.
	ErrInvalidRecipient = errors.New("invalid recipient number")
)

// SendResult is the provider's synchronous delivery confirmation. Provider
// acceptance is treated as delivered; there is no end-recipient verification.
type SendResult struct {
	MessageID string
	Status    string
}

// Sender delivers a text message to a phone number. Implemented by the
// Twilio client; consumers take the interface so tests can substitute a stub.
type Sender interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// Error provides detailed error information from the delivery provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

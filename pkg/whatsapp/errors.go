package whatsapp

import "errors"

var (
	ErrInvalidConfig    = errors.New("whatsapp: invalid config")
	ErrInvalidRecipient = errors.New("whatsapp: invalid recipient phone number")
	ErrEmptyMessage     = errors.New("whatsapp: message body is empty")
	ErrRequestFailed    = errors.New("whatsapp: request failed")
	ErrRejected         = errors.New("whatsapp: message rejected by api")
	ErrCircuitOpen      = errors.New("whatsapp: circuit breaker is open")
)

// IsPermanent reports whether err will not go away on retry:
// invalid input or a 4xx rejection other than rate limiting.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrEmptyMessage)
}

package email

import "errors"

var (
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid message params")
	ErrFailedToSendEmail = errors.New("email: failed to send")
	// ErrRejected is returned when the provider refuses the message itself,
	// e.g. an inactive or malformed recipient. Retrying will not help.
	ErrRejected = errors.New("email: rejected by provider")
)

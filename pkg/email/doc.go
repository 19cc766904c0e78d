// Package email sends transactional patient emails through Postmark, or writes
// them to an outbox directory in development.
//
// Both implementations satisfy EmailSender and validate parameters before
// sending:
//
//	sender, err := email.NewSender(cfg) // Postmark when tokens are set, DevSender otherwise
//	id, err := sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "patient@example.com",
//	    Subject:  "Appointment reminder",
//	    BodyHTML: "<p>See you tomorrow at 10:00</p>",
//	    Tag:      "reminder",
//	})
//
// Errors wrap ErrInvalidConfig, ErrInvalidParams, ErrRejected or
// ErrFailedToSendEmail and can be checked with errors.Is. Only
// ErrFailedToSendEmail is worth retrying.
package email

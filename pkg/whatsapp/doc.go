// Package whatsapp sends patient text messages through the WhatsApp Cloud API.
//
// Client posts to /{phone-number-id}/messages with a bearer token. Calls go
// through a sony/gobreaker circuit breaker; while it is open SendText fails
// fast with ErrCircuitOpen. Rejections (4xx other than 429) and invalid input
// are reported by IsPermanent and do not count against the breaker.
//
// DevSender logs messages instead of sending them and is returned by NewSender
// when no credentials are configured.
package whatsapp

package whatsapp

import "time"

// Config holds WhatsApp Cloud API settings. With an empty AccessToken the
// process falls back to DevSender.
type Config struct {
	APIURL        string        `env:"WHATSAPP_API_URL" envDefault:"https://graph.facebook.com/v20.0"`
	PhoneNumberID string        `env:"WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken   string        `env:"WHATSAPP_ACCESS_TOKEN"`
	Timeout       time.Duration `env:"WHATSAPP_TIMEOUT" envDefault:"10s"`

	BreakerMinRequests   uint32        `env:"WHATSAPP_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerFailureRatio  float64       `env:"WHATSAPP_BREAKER_FAILURE_RATIO" envDefault:"0.6"`
	BreakerInterval      time.Duration `env:"WHATSAPP_BREAKER_INTERVAL" envDefault:"1m"`
	BreakerOpenTimeout   time.Duration `env:"WHATSAPP_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	BreakerHalfOpenProbe uint32        `env:"WHATSAPP_BREAKER_HALF_OPEN_PROBES" envDefault:"1"`
}

// Enabled reports whether the Cloud API credentials are configured
func (c Config) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

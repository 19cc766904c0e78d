package email

// Config holds email service configuration.
// When the Postmark tokens are empty the process falls back to DevSender
// writing messages to DevOutputDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@dentflow.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@dentflow.app"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`
}

// PostmarkEnabled reports whether both Postmark tokens are configured
func (c Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// NewSender returns a Postmark client when it is configured, DevSender otherwise
func NewSender(cfg Config) (EmailSender, error) {
	if !cfg.PostmarkEnabled() {
		return NewDevSender(cfg.DevOutputDir), nil
	}
	c, err := NewPostmarkClient(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

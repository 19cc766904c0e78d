package notify

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the notification pipeline settings
type Config struct {
	ClinicName string `env:"CLINIC_NAME" envDefault:"DentFlow"`
	Timezone   string `env:"CLINIC_TIMEZONE" envDefault:"UTC"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":8081"`

	// Optional YAML file overriding the built-in templates
	TemplatesFile string `env:"NOTIFY_TEMPLATES_FILE"`

	ReminderPriority int `env:"NOTIFY_REMINDER_PRIORITY" envDefault:"1"`
	DefaultPriority  int `env:"NOTIFY_DEFAULT_PRIORITY" envDefault:"5"`
	MaxAttempts      int `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`

	ReminderWindow    time.Duration `env:"NOTIFY_REMINDER_WINDOW" envDefault:"24h"`
	ReminderBatchSize int           `env:"NOTIFY_REMINDER_BATCH_SIZE" envDefault:"200"`

	NotificationRetention time.Duration `env:"NOTIFY_RETENTION" envDefault:"720h"`
	DeadJobRetentionDays  int           `env:"NOTIFY_DEAD_JOB_RETENTION_DAYS" envDefault:"7"`

	PendingWarnThreshold int64 `env:"NOTIFY_PENDING_WARN_THRESHOLD" envDefault:"100"`
	DeadWarnThreshold    int64 `env:"NOTIFY_DEAD_WARN_THRESHOLD" envDefault:"50"`

	ReconcileAfter     time.Duration `env:"NOTIFY_RECONCILE_AFTER" envDefault:"1h"`
	ReconcileBatchSize int           `env:"NOTIFY_RECONCILE_BATCH_SIZE" envDefault:"50"`

	RetryAfter     time.Duration `env:"NOTIFY_RETRY_AFTER" envDefault:"30m"`
	RetryBatchSize int           `env:"NOTIFY_RETRY_BATCH_SIZE" envDefault:"10"`
	MaxRetries     int           `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`

	ReminderCron  string `env:"NOTIFY_REMINDER_CRON" envDefault:"0 * * * *"`
	CleanupCron   string `env:"NOTIFY_CLEANUP_CRON" envDefault:"0 3 * * *"`
	HealthCron    string `env:"NOTIFY_HEALTH_CRON" envDefault:"*/5 * * * *"`
	ReconcileCron string `env:"NOTIFY_RECONCILE_CRON" envDefault:"*/10 * * * *"`
	RetryCron     string `env:"NOTIFY_RETRY_CRON" envDefault:"*/30 * * * *"`
}

// DefaultConfig returns the configuration used when no environment is set
func DefaultConfig() Config {
	return Config{
		ClinicName:            "DentFlow",
		Timezone:              "UTC",
		AdminAddr:             ":8081",
		ReminderPriority:      1,
		DefaultPriority:       5,
		MaxAttempts:           3,
		ReminderWindow:        24 * time.Hour,
		ReminderBatchSize:     200,
		NotificationRetention: 30 * 24 * time.Hour,
		DeadJobRetentionDays:  7,
		PendingWarnThreshold:  100,
		DeadWarnThreshold:     50,
		ReconcileAfter:        time.Hour,
		ReconcileBatchSize:    50,
		RetryAfter:            30 * time.Minute,
		RetryBatchSize:        10,
		MaxRetries:            3,
		ReminderCron:          "0 * * * *",
		CleanupCron:           "0 3 * * *",
		HealthCron:            "*/5 * * * *",
		ReconcileCron:         "*/10 * * * *",
		RetryCron:             "*/30 * * * *",
	}
}

// Validate rejects settings the pipeline cannot honour instead of silently
// replacing them with defaults.
func (c Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	batches := []struct {
		name string
		size int
	}{
		{"reminder", c.ReminderBatchSize},
		{"reconcile", c.ReconcileBatchSize},
		{"retry", c.RetryBatchSize},
	}
	for _, b := range batches {
		if b.size < 1 {
			errs = append(errs, fmt.Errorf("%s batch size must be at least 1, got %d", b.name, b.size))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Location resolves the clinic timezone
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

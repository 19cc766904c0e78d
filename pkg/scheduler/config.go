package scheduler

import "time"

// Config holds the configuration for the task scheduler
type Config struct {
	CheckInterval time.Duration `env:"SCHEDULER_CHECK_INTERVAL" envDefault:"15s"`
	RunTimeout    time.Duration `env:"SCHEDULER_RUN_TIMEOUT" envDefault:"5m"`
}

// Options converts the config into scheduler options
func (c Config) Options() []Option {
	return []Option{
		WithCheckInterval(c.CheckInterval),
		WithRunTimeout(c.RunTimeout),
	}
}

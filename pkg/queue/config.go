package queue

import "time"

// Config holds the configuration for the job queue
type Config struct {
	IdleInterval       time.Duration `env:"QUEUE_IDLE_INTERVAL" envDefault:"1s"`
	ErrorInterval      time.Duration `env:"QUEUE_ERROR_INTERVAL" envDefault:"5s"`
	LeaseTimeout       time.Duration `env:"QUEUE_LEASE_TIMEOUT" envDefault:"5m"`
	LeaseCheckInterval time.Duration `env:"QUEUE_LEASE_CHECK_INTERVAL" envDefault:"1m"`
	DefaultMaxAttempts int           `env:"QUEUE_DEFAULT_MAX_ATTEMPTS" envDefault:"3"`
	RedisKeyPrefix     string        `env:"QUEUE_REDIS_KEY_PREFIX" envDefault:"dentflow:queue"`
	BackoffBase        time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"1s"`
	BackoffMax         time.Duration `env:"QUEUE_BACKOFF_MAX" envDefault:"1h"`
	BackoffJitter      float64       `env:"QUEUE_BACKOFF_JITTER" envDefault:"0"`
}

// RetryPolicy builds the backoff policy described by the config
func (c Config) RetryPolicy() RetryPolicy {
	return ExponentialBackoff{
		Base:         c.BackoffBase,
		Max:          c.BackoffMax,
		JitterFactor: c.BackoffJitter,
	}
}

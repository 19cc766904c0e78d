// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv, which reads an optional .env file,
// with github.com/caarlos0/env/v11, which fills structs from `env` and
// `envDefault` field tags. Every component of the service declares its own
// Config struct next to the code it configures (queue.Config,
// scheduler.Config, notify.Config...). The process entry point loads them
// through this package:
//
//	var queueCfg queue.Config
//	config.MustLoad(&queueCfg)
//
// Each config type is parsed once and cached for the lifetime of the process.
// ResetCache clears the cache, which is mostly useful in tests.
package config

package main

import (
	"github.com/dmitrymomot/dentflow/pkg/email"
	"github.com/dmitrymomot/dentflow/pkg/httpserver"
	"github.com/dmitrymomot/dentflow/pkg/pg"
	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/pkg/redis"
	"github.com/dmitrymomot/dentflow/pkg/scheduler"
	"github.com/dmitrymomot/dentflow/pkg/whatsapp"
	"github.com/dmitrymomot/dentflow/svc/notify"
)

// appConfig gathers every component config; nested structs are parsed from the same environment
type appConfig struct {
	AppName string `env:"APP_NAME" envDefault:"dentflow-notifier"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	// Overrides the level implied by APP_ENV
	LogLevel string `env:"LOG_LEVEL"`

	Postgres  pg.Config
	Redis     redis.Config
	Queue     queue.Config
	Scheduler scheduler.Config
	Notify    notify.Config
	Email     email.Config
	WhatsApp  whatsapp.Config
	Admin     httpserver.Config
}

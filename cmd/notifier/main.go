package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dentflow/pkg/config"
	"github.com/dmitrymomot/dentflow/pkg/email"
	"github.com/dmitrymomot/dentflow/pkg/httpserver"
	"github.com/dmitrymomot/dentflow/pkg/logger"
	"github.com/dmitrymomot/dentflow/pkg/pg"
	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/pkg/redis"
	"github.com/dmitrymomot/dentflow/pkg/scheduler"
	"github.com/dmitrymomot/dentflow/pkg/whatsapp"
	"github.com/dmitrymomot/dentflow/svc/notify"
	"github.com/dmitrymomot/dentflow/svc/notify/pgstore"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.AppEnv, cfg.AppName), logger.WithLevelName(cfg.LogLevel))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("notifier stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("notifier stopped")
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	if err := cfg.Notify.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Notify.Location()
	if err != nil {
		return err
	}
	templates, err := notify.LoadTemplatesFile(cfg.Notify.TemplatesFile, loc)
	if err != nil {
		return err
	}

	// Storage
	cfg.Postgres.MigrationsPath = pgstore.MigrationsDir
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg.Postgres, log); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	store := pgstore.New(pool)

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// Channels
	mailer, err := email.NewSender(cfg.Email)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	wa, err := whatsapp.NewSender(cfg.WhatsApp, whatsapp.WithLogger(log.With(logger.Component("whatsapp"))))
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}
	if !cfg.WhatsApp.Enabled() {
		log.Warn("whatsapp credentials not set, messages are only logged")
	}

	handlers := notify.NewHandlers(store,
		notify.NewWhatsAppChannel(wa),
		notify.NewEmailChannel(mailer),
		notify.WithHandlersLogger(log.With(logger.Component("handlers"))))

	// Queue
	jobs := queue.NewRedisStorage(rdb, queue.WithKeyPrefix(cfg.Queue.RedisKeyPrefix))

	runner, err := queue.NewRunner(jobs,
		queue.WithRetryPolicy(cfg.Queue.RetryPolicy()),
		queue.WithIdleInterval(cfg.Queue.IdleInterval),
		queue.WithErrorInterval(cfg.Queue.ErrorInterval),
		queue.WithLeaseTimeout(cfg.Queue.LeaseTimeout),
		queue.WithLeaseCheckInterval(cfg.Queue.LeaseCheckInterval),
		queue.WithDeadLetterHook(handlers.OnDeadLetter),
		queue.WithRunnerLogger(log.With(logger.Component("runner"))))
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	if err := runner.RegisterHandlers(handlers.QueueHandlers()...); err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	q, err := queue.New(jobs,
		queue.WithFallback(runner),
		queue.WithDefaultMaxAttempts(cfg.Queue.DefaultMaxAttempts),
		queue.WithEnqueuerLogger(log.With(logger.Component("queue"))))
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}

	// Domain
	notifier := notify.NewNotifier(store, q,
		append(cfg.Notify.NotifierOptions(loc),
			notify.WithTemplates(templates),
			notify.WithNotifierLogger(log.With(logger.Component("notifier"))))...)

	tasks := notify.NewTasks(store, q, notifier, cfg.Notify,
		notify.WithTasksLogger(log.With(logger.Component("tasks"))))

	sched := scheduler.New(append(cfg.Scheduler.Options(),
		scheduler.WithLogger(log.With(logger.Component("scheduler"))))...)
	if err := tasks.Initialize(sched); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	admin := notify.NewAdmin(tasks, q, sched, log.With(logger.Component("admin")))
	server := httpserver.New(cfg.Notify.AdminAddr, cfg.Admin,
		httpserver.WithLogger(log.With(logger.Component("http"))))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(runner.Run(gctx))
	g.Go(sched.Run(gctx))
	g.Go(server.Serve(gctx, admin.Router()))

	log.Info("notifier started",
		slog.String("admin_addr", cfg.Notify.AdminAddr),
		slog.Bool("postmark", cfg.Email.PostmarkEnabled()),
		slog.Bool("whatsapp", cfg.WhatsApp.Enabled()))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

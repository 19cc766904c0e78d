// Package queue provides a storage-agnostic delay queue with priorities,
// exponential-backoff retries and a dead-letter set.
//
// The package is organised around three components:
//
//   - Enqueuer / Queue: adds jobs and exposes stats and dead set maintenance
//   - Runner: claims ready jobs one at a time and dispatches them to a Handler
//   - RetryPolicy: decides between retry-after-delay and dead-letter
//
// A job lives in exactly one of three sets: pending (ordered by ReadyAt, then
// Priority, lower first), in-flight (claimed under a lease) and dead.
// Components talk to storage only through the EnqueuerRepository,
// WorkerRepository and AdminRepository interfaces. MemoryStorage and
// RedisStorage implement all of them.
//
// # Usage
//
//	type SendReminder struct {
//	    AppointmentID string `json:"appointment_id"`
//	}
//
//	func (SendReminder) Kind() queue.Kind { return "send-reminder" }
//
//	repo := queue.NewRedisStorage(client)
//
//	runner, _ := queue.NewRunner(repo)
//	_ = runner.RegisterHandler(queue.NewHandler(func(ctx context.Context, p SendReminder) error {
//	    return deliver(ctx, p.AppointmentID)
//	}))
//
//	q, _ := queue.New(repo, queue.WithFallback(runner))
//	id, err := q.Enqueue(ctx, SendReminder{AppointmentID: "42"}, queue.WithDelay(time.Minute))
//
// With a fallback executor configured, a store outage at enqueue time makes the
// job run once synchronously instead of being lost.
//
// # Error Handling
//
// Handlers return plain errors for retryable failures. Wrap an error with
// Permanent to dead-letter the job immediately. Package-level sentinel errors
// can be checked with errors.Is.
package queue

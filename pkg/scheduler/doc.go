// Package scheduler runs named recurring tasks on interval, clock-aligned or
// cron schedules.
//
// Tasks are registered on an explicitly constructed Scheduler, each with a
// Schedule and a TaskFunc returning a typed Result. Every run is logged with
// its result; errors and panics inside a task body never escape the scheduler.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.Register("cleanup", scheduler.MustCron("0 3 * * *"), func(ctx context.Context) scheduler.Result {
//	    n, err := purge(ctx)
//	    return scheduler.Result{Affected: n, Err: err}
//	})
//
//	g.Go(s.Run(ctx))
//
// Tasks can be toggled with Enable and Disable, run on demand with RunManually
// and inspected with Status. Stop clears the registry.
package scheduler

// Package logger builds *slog.Logger instances with a consistent format and
// provides attribute helpers so that keys stay the same across packages.
//
// Attributes stored in a context with WithAttrs are appended to every record
// logged with that context. The queue runner uses this to tag all logs written
// by a job handler with the job id and kind.
//
//	log := logger.New(logger.WithEnvironment("production", "notifier"))
//	logger.SetAsDefault(log)
//
//	ctx = logger.WithAttrs(ctx, logger.JobID(job.ID))
//	log.InfoContext(ctx, "message sent", logger.NotificationID(n.ID))
package logger

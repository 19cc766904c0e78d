package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrEmptyKind is returned when a payload reports an empty kind
	ErrEmptyKind = errors.New("payload kind cannot be empty")

	// ErrJobPush is returned when the job could not be stored and no fallback is configured
	ErrJobPush = errors.New("failed to push job to queue storage")

	// ErrDirectExecution is returned when degraded-mode direct execution fails
	ErrDirectExecution = errors.New("direct execution of job failed")

	// ErrNoJobReady is returned by Claim when no pending job is ready
	ErrNoJobReady = errors.New("no job ready to claim")

	// ErrJobNotFound is returned when a job id is not present in the expected set
	ErrJobNotFound = errors.New("job not found")

	// ErrHandlerNotFound is returned when no handler is registered for a job kind
	ErrHandlerNotFound = errors.New("no handler registered for job kind")

	// ErrNoHandlers is returned when runner has no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrRunnerStarted is returned when Start is called on a running runner
	ErrRunnerStarted = errors.New("runner already started")

	// ErrRunnerNotStarted is returned when Stop is called on an idle runner
	ErrRunnerNotStarted = errors.New("runner not started")

	// ErrPermanent marks failures that must not be retried
	ErrPermanent = errors.New("permanent job failure")
)

// Permanent wraps err so the runner dead-letters the job without retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

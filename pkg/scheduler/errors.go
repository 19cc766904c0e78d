package scheduler

import "errors"

var (
	// ErrEmptyTaskName is returned when registering a task without a name
	ErrEmptyTaskName = errors.New("task name cannot be empty")

	// ErrScheduleNil is returned when registering a task without a schedule
	ErrScheduleNil = errors.New("task schedule cannot be nil")

	// ErrTaskFuncNil is returned when registering a task without a body
	ErrTaskFuncNil = errors.New("task function cannot be nil")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrNoTasks is returned when the scheduler is started without tasks
	ErrNoTasks = errors.New("scheduler has no registered tasks")

	// ErrAlreadyStarted is returned when Start is called on a running scheduler
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrInvalidCronExpression is returned when a cron expression cannot be parsed
	ErrInvalidCronExpression = errors.New("invalid cron expression")
)

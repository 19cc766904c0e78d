package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/dentflow/pkg/logger"
)

// Result is the typed outcome of a single task run
type Result struct {
	Affected int
	Message  string
	Err      error
}

// String returns a one-line summary of the result
func (r Result) String() string {
	var b strings.Builder
	if r.Err != nil {
		b.WriteString("error: ")
		b.WriteString(r.Err.Error())
	} else {
		fmt.Fprintf(&b, "ok, %d affected", r.Affected)
	}
	if r.Message != "" {
		b.WriteString(" (")
		b.WriteString(r.Message)
		b.WriteString(")")
	}
	return b.String()
}

// TaskFunc is the body of a recurring task. It must be idempotent and return
// once its context is done.
type TaskFunc func(ctx context.Context) Result

// TaskStatus is a point-in-time view of a registered task
type TaskStatus struct {
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"`
	Enabled    bool       `json:"enabled"`
	Running    bool       `json:"running"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastResult string     `json:"last_result,omitempty"`
}

// task holds registration and run state of a recurring task
type task struct {
	name       string
	schedule   Schedule
	fn         TaskFunc
	enabled    bool
	running    bool
	nextRunAt  time.Time
	lastRunAt  *time.Time
	lastResult *Result
}

// Scheduler owns a registry of named recurring tasks and runs them when due
type Scheduler struct {
	tasks map[string]*task
	mu    sync.Mutex

	checkInterval time.Duration
	runTimeout    time.Duration
	now           func() time.Time
	logger        *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler with an empty registry
func New(opts ...Option) *Scheduler {
	o := &options{
		checkInterval: 15 * time.Second,
		runTimeout:    5 * time.Minute,
		now:           time.Now,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &Scheduler{
		tasks:         make(map[string]*task),
		checkInterval: o.checkInterval,
		runTimeout:    o.runTimeout,
		now:           o.now,
		logger:        o.logger,
	}
}

// Register adds an enabled task. A duplicate name leaves the existing
// registration untouched and returns ErrTaskAlreadyRegistered.
func (s *Scheduler) Register(name string, schedule Schedule, fn TaskFunc) error {
	switch {
	case name == "":
		return ErrEmptyTaskName
	case schedule == nil:
		return ErrScheduleNil
	case fn == nil:
		return ErrTaskFuncNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		s.logger.Warn("task already registered, skipping",
			logger.TaskName(name))
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &task{
		name:      name,
		schedule:  schedule,
		fn:        fn,
		enabled:   true,
		nextRunAt: schedule.Next(s.now()),
	}

	s.logger.Info("registered recurring task",
		logger.TaskName(name),
		slog.String("schedule", schedule.String()))

	return nil
}

// Enable resumes firing of a task. It reports false for unknown names.
func (s *Scheduler) Enable(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return false
	}

	if !t.enabled {
		t.enabled = true
		// Firings missed while disabled are not caught up
		t.nextRunAt = t.schedule.Next(s.now())
		s.logger.Info("task enabled", logger.TaskName(name))
	}

	return true
}

// Disable stops future firings of a task without interrupting a run in
// progress. It reports false for unknown names.
func (s *Scheduler) Disable(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return false
	}

	if t.enabled {
		t.enabled = false
		s.logger.Info("task disabled", logger.TaskName(name))
	}

	return true
}

// RunManually runs a task immediately and waits for it to finish, regardless
// of its schedule or enabled state. It reports whether the task was found and
// attempted, not whether the run succeeded. A run already in progress is not
// duplicated.
func (s *Scheduler) RunManually(ctx context.Context, name string) bool {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if t.running {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "task is already running, manual run skipped",
			logger.TaskName(name))
		return true
	}
	t.running = true
	s.mu.Unlock()

	s.execute(ctx, t, "manual")

	return true
}

// Status returns the state of every registered task sorted by name
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		st := TaskStatus{
			Name:     t.name,
			Schedule: t.schedule.String(),
			Enabled:  t.enabled,
			Running:  t.running,
		}
		if t.lastRunAt != nil {
			lastRunAt := *t.lastRunAt
			st.LastRunAt = &lastRunAt
		}
		if t.enabled {
			nextRunAt := t.nextRunAt
			st.NextRunAt = &nextRunAt
		}
		if t.lastResult != nil {
			st.LastResult = t.lastResult.String()
		}
		statuses = append(statuses, st)
	}

	slices.SortFunc(statuses, func(a, b TaskStatus) int {
		return strings.Compare(a.Name, b.Name)
	})

	return statuses
}

// Has reports whether a task with the given name is registered
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// RunDue runs every enabled task whose next run time has passed and waits for
// all of them to finish. It returns the number of runs started.
func (s *Scheduler) RunDue(ctx context.Context) int {
	due := s.claimDue()

	var wg sync.WaitGroup
	for _, t := range due {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.execute(ctx, t, "schedule")
		}()
	}
	wg.Wait()

	return len(due)
}

// Start begins checking for due tasks in the background
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return ErrNoTasks
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	taskCount := len(s.tasks)
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop(ctx)
	}()

	s.logger.Info("scheduler started",
		slog.Int("tasks", taskCount),
		slog.Duration("check_interval", s.checkInterval))

	return nil
}

// Stop halts all triggers and clears the registry. Task bodies already
// running are not interrupted and finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.logger.Info("scheduler stopped")
}

// Run starts the scheduler and returns a function suitable for errgroup
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		s.Stop()

		return nil
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range s.claimDue() {
				go s.execute(ctx, t, "schedule")
			}
		}
	}
}

// claimDue marks due tasks as running and advances their next run time.
// A task still running from its previous firing is skipped.
func (s *Scheduler) claimDue() []*task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []*task
	for _, t := range s.tasks {
		if !t.enabled || t.nextRunAt.After(now) {
			continue
		}

		t.nextRunAt = t.schedule.Next(now)

		if t.running {
			s.logger.Warn("previous run still in progress, skipping firing",
				logger.TaskName(t.name))
			continue
		}

		t.running = true
		due = append(due, t)
	}

	return due
}

// execute runs the task body detached from scheduler cancellation and records the result
func (s *Scheduler) execute(ctx context.Context, t *task, trigger string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
	defer cancel()

	ctx = logger.WithAttrs(ctx, logger.TaskName(t.name))

	start := s.now()
	result := s.invoke(ctx, t)
	finished := s.now()

	s.mu.Lock()
	t.running = false
	t.lastRunAt = &finished
	t.lastResult = &result
	s.mu.Unlock()

	attrs := []any{
		logger.TaskName(t.name),
		slog.String("trigger", trigger),
		slog.Int("affected", result.Affected),
		logger.Duration(finished.Sub(start)),
	}
	if result.Message != "" {
		attrs = append(attrs, slog.String("message", result.Message))
	}

	if result.Err != nil {
		s.logger.Error("task run failed", append(attrs, logger.Error(result.Err))...)
		return
	}

	s.logger.Info("task run completed", attrs...)
}

func (s *Scheduler) invoke(ctx context.Context, t *task) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Err: fmt.Errorf("panic in task %s: %v", t.name, rec)}
		}
	}()

	return t.fn(ctx)
}

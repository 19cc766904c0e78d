package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/logger"
	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/pkg/scheduler"
)

// TaskManager is the scheduler surface exposed over HTTP
type TaskManager interface {
	Status() []scheduler.TaskStatus
	Enable(name string) bool
	Disable(name string) bool
	RunManually(ctx context.Context, name string) bool
}

// DeadLetterAdmin is the queue surface exposed over HTTP
type DeadLetterAdmin interface {
	Stats(ctx context.Context) (queue.Stats, error)
	DeadJobs(ctx context.Context, limit int) ([]queue.DeadJob, error)
	ResendDead(ctx context.Context, id uuid.UUID) (*queue.Job, error)
}

const defaultDeadListLimit = 100

// Admin serves the operational HTTP API
type Admin struct {
	tasks     *Tasks
	queue     DeadLetterAdmin
	scheduler TaskManager
	logger    *slog.Logger
}

// NewAdmin creates the admin API
func NewAdmin(tasks *Tasks, q DeadLetterAdmin, sched TaskManager, l *slog.Logger) *Admin {
	if l == nil {
		l = slog.Default()
	}
	return &Admin{tasks: tasks, queue: q, scheduler: sched, logger: l}
}

// Router returns the chi router with all admin routes mounted
func (a *Admin) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", a.health)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/stats", a.queueStats)
		r.Get("/dead", a.deadJobs)
		r.Post("/dead/{id}/resend", a.resendDead)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", a.listTasks)
		r.Post("/{name}/enable", a.enableTask)
		r.Post("/{name}/disable", a.disableTask)
		r.Post("/{name}/run", a.runTask)
	})

	return r
}

func (a *Admin) health(w http.ResponseWriter, r *http.Request) {
	report := a.tasks.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, r, status, report)
}

func (a *Admin) queueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.queue.Stats(r.Context())
	if err != nil {
		a.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, stats)
}

func (a *Admin) deadJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.writeError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	dead, err := a.queue.DeadJobs(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	if dead == nil {
		dead = []queue.DeadJob{}
	}
	a.writeJSON(w, r, http.StatusOK, dead)
}

func (a *Admin) resendDead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, errors.New("invalid job id"))
		return
	}

	job, err := a.queue.ResendDead(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			a.writeError(w, r, http.StatusNotFound, err)
			return
		}
		a.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	a.logger.InfoContext(r.Context(), "dead job resent",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)))
	a.writeJSON(w, r, http.StatusOK, job)
}

func (a *Admin) listTasks(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.scheduler.Status())
}

func (a *Admin) enableTask(w http.ResponseWriter, r *http.Request) {
	a.taskAction(w, r, "enabled", func(name string) bool { return a.scheduler.Enable(name) })
}

func (a *Admin) disableTask(w http.ResponseWriter, r *http.Request) {
	a.taskAction(w, r, "disabled", func(name string) bool { return a.scheduler.Disable(name) })
}

func (a *Admin) runTask(w http.ResponseWriter, r *http.Request) {
	a.taskAction(w, r, "ran", func(name string) bool { return a.scheduler.RunManually(r.Context(), name) })
}

func (a *Admin) taskAction(w http.ResponseWriter, r *http.Request, verb string, fn func(string) bool) {
	name := chi.URLParam(r, "name")
	if !fn(name) {
		a.writeError(w, r, http.StatusNotFound, ErrUnknownTask)
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string]string{"task": name, "result": verb})
}

func (a *Admin) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "admin request failed",
			slog.String("path", r.URL.Path),
			logger.Error(err))
	}
	a.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

func (a *Admin) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.WarnContext(r.Context(), "failed to write response", logger.Error(err))
	}
}

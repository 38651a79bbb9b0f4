package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"quizsolver-backend/services/solver"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("quizsolver.services.jobs")

const listLimit = 100

type Options struct {
	// persists job outcomes across restarts, may be nil
	Store *Store
	// told about terminal jobs, may be nil
	Notifier Notifier
}

// Registry supervises background solver runs. Every job gets an id, a
// tracked goroutine and a terminal record, a panicking run is recorded
// instead of taking the process down.
type Registry struct {
	store    *Store
	notifier Notifier

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string

	wg sync.WaitGroup
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		store:    opts.Store,
		notifier: opts.Notifier,
		jobs:     map[string]*Job{},
	}
}

// Launch registers a job and starts it on its own goroutine. The job
// outlives ctx's cancellation, only trace metadata is carried over from
// the caller.
func (r *Registry) Launch(ctx context.Context, email, url string, run func(context.Context) solver.Result) (Job, error) {
	id, err := random.String(16)
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}

	job := Job{
		Id:        id,
		Email:     email,
		Url:       url,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	tracked := job
	r.mu.Lock()
	r.jobs[id] = &tracked
	r.order = append(r.order, id)
	r.mu.Unlock()

	if r.store != nil {
		err := r.store.CreateJob(ctx, job)
		if err != nil {
			slog.WarnContext(ctx, "failed to persist job", "job_id", id, "err", err)
		}
	}
	slog.InfoContext(ctx, "job launched", "job_id", id, "email", email, "url", url)

	r.wg.Add(1)
	go r.supervise(context.WithoutCancel(ctx), id, run)

	return job, nil
}

// Wait blocks until every launched job has reached a terminal status.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Get looks a job up by id, falling back to the store for jobs recorded
// by previous runs of the process.
func (r *Registry) Get(ctx context.Context, id string) (Job, bool, error) {
	job, ok := r.lookup(id)
	if ok {
		return job, true, nil
	}
	if r.store == nil {
		return Job{}, false, nil
	}

	job, err := r.store.GetJob(ctx, id)
	if err == sql.ErrNoRows {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

// List returns jobs newest first. The store, when configured, is the
// source of truth so jobs from previous runs of the process show up too.
func (r *Registry) List(ctx context.Context) ([]Job, error) {
	if r.store != nil {
		return r.store.ListJobs(ctx, listLimit)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, *r.jobs[r.order[i]])
	}
	return out, nil
}

func (r *Registry) supervise(ctx context.Context, id string, run func(context.Context) solver.Result) {
	defer r.wg.Done()

	ctx, span := tracer.Start(ctx, "service:Job", trace.WithAttributes(
		attribute.String("job_id", id),
	))
	defer span.End()

	r.update(ctx, id, func(job *Job) {
		now := time.Now()
		job.Status = StatusRunning
		job.StartedAt = &now
	})

	defer func() {
		v := recover()
		if v == nil {
			return
		}
		span.SetStatus(codes.Error, "job panicked")
		slog.ErrorContext(
			ctx, "job panicked",
			"job_id", id,
			"panic", v,
			"stack", string(debug.Stack()),
		)
		r.finish(ctx, id, func(job *Job) {
			job.Status = StatusPanicked
			job.Panic = fmt.Sprint(v)
		})
	}()

	result := run(ctx)

	span.SetAttributes(attribute.String("status", string(result.Status)))
	r.finish(ctx, id, func(job *Job) {
		job.Status = StatusDone
		job.Result = &result
	})
}

// update mutates the tracked job under lock and writes the new snapshot
// through to the store.
func (r *Registry) update(ctx context.Context, id string, mutate func(*Job)) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	mutate(job)
	snapshot := *job
	r.mu.Unlock()

	if r.store != nil {
		err := r.store.UpdateJob(ctx, snapshot)
		if err != nil {
			slog.WarnContext(ctx, "failed to persist job update", "job_id", id, "err", err)
		}
	}
}

func (r *Registry) finish(ctx context.Context, id string, mutate func(*Job)) {
	r.update(ctx, id, func(job *Job) {
		now := time.Now()
		job.EndedAt = &now
		mutate(job)
	})

	job, ok := r.lookup(id)
	if !ok {
		return
	}
	slog.InfoContext(ctx, "job finished", "job_id", id, "status", string(job.Status))

	if r.notifier != nil {
		err := r.notifier.NotifyJobDone(ctx, job)
		if err != nil {
			slog.WarnContext(ctx, "failed to send job notification", "job_id", id, "err", err)
		}
	}
}

func (r *Registry) lookup(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Package job runs extractions asynchronously and records them as jobs in
// the state store.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// ErrClosed is returned by Submit once the runner is closed.
var ErrClosed = errors.New("job: runner is closed")

// DefaultMaxConcurrent is the number of jobs running at once when the
// runner configuration does not set it.
const DefaultMaxConcurrent = 2

// Extractor runs one extraction.
type Extractor interface {
	Run(ctx context.Context, ref core.FormatRef, filter *core.Filter, opts ...extraction.RunOption) (*extraction.Result, error)
}

// Config holds runner configuration.
type Config struct {
	Extractor Extractor
	Store     core.Store
	// MaxConcurrent bounds the jobs running at once.
	MaxConcurrent int64
	// NewID generates job ids (optional).
	NewID  func() string
	Logger *slog.Logger
}

// Runner runs extraction jobs in background goroutines. A job is recorded
// as pending, moves to running once a slot is free and ends in success or
// error. Failed jobs are not retried.
type Runner struct {
	extractor Extractor
	store     core.Store
	sem       *semaphore.Weighted
	newID     func() string
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards closed, done and wg.Add against Close.
	mu     sync.Mutex
	closed bool
	done   map[string]chan struct{}
}

// New creates a runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("job: extractor is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("job: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		extractor: cfg.Extractor,
		store:     cfg.Store,
		sem:       semaphore.NewWeighted(limit),
		newID:     newID,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(map[string]chan struct{}),
	}, nil
}

// Option configures a submitted job.
type Option func(*core.Job)

// WithLabel sets the product label of the job.
func WithLabel(label string) Option {
	return func(j *core.Job) { j.Label = label }
}

// WithStrata sets the aggregation strata of the job.
func WithStrata(s core.Strata) Option {
	return func(j *core.Job) { j.Strata = &s }
}

// Submit records a pending job and starts it in the background.
func (r *Runner) Submit(ctx context.Context, ref core.FormatRef, filter *core.Filter, opts ...Option) (*core.Job, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()
	started := false
	defer func() {
		if !started {
			r.wg.Done()
		}
	}()

	job := &core.Job{
		ID:        r.newID(),
		Format:    ref,
		Status:    core.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if filter != nil {
		job.Filter = *filter
	}
	for _, opt := range opts {
		opt(job)
	}

	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.done[job.ID] = done
	r.mu.Unlock()

	r.logger.Info("job submitted", slog.String("id", job.ID), slog.String("format", ref.String()))

	snapshot := *job
	started = true
	go func() {
		defer r.wg.Done()
		r.run(&snapshot)

		r.mu.Lock()
		delete(r.done, snapshot.ID)
		r.mu.Unlock()
		close(done)
	}()
	return job, nil
}

// run executes a job and records its outcome.
func (r *Runner) run(job *core.Job) {
	ctx := r.ctx
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.finish(job, nil, fmt.Errorf("job cancelled before start: %w", err))
		return
	}
	defer r.sem.Release(1)

	started := time.Now().UTC()
	job.Status = core.JobStatusRunning
	job.StartedAt = &started
	if err := r.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		r.logger.Error("failed to mark job running", slog.String("id", job.ID), slog.String("error", err.Error()))
	}

	var opts []extraction.RunOption
	if job.Label != "" {
		opts = append(opts, extraction.WithLabel(job.Label))
	}
	if job.Strata != nil {
		opts = append(opts, extraction.WithStrata(*job.Strata))
	}

	filter := job.Filter
	res, err := r.extractor.Run(ctx, job.Format, &filter, opts...)
	r.finish(job, res, err)
}

func (r *Runner) finish(job *core.Job, res *extraction.Result, err error) {
	completed := time.Now().UTC()
	job.CompletedAt = &completed
	if res != nil {
		job.Sheets = res.JobSheets()
	}
	if err != nil {
		job.Status = core.JobStatusError
		job.Error = err.Error()
		r.logger.Warn("job failed", slog.String("id", job.ID), slog.String("error", job.Error))
	} else {
		job.Status = core.JobStatusSuccess
		r.logger.Info("job completed", slog.String("id", job.ID), slog.Int("sheets", len(job.Sheets)))
	}

	if err := r.store.UpdateJob(context.WithoutCancel(r.ctx), job); err != nil {
		r.logger.Error("failed to record job outcome", slog.String("id", job.ID), slog.String("error", err.Error()))
	}
}

// Wait blocks until the job ends or ctx is done and returns its record.
// Finished jobs and jobs not started by this runner are returned as stored.
func (r *Runner) Wait(ctx context.Context, id string) (*core.Job, error) {
	r.mu.Lock()
	done, ok := r.done[id]
	r.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.Get(ctx, id)
}

// Get returns the stored record of a job.
func (r *Runner) Get(ctx context.Context, id string) (*core.Job, error) {
	return r.store.GetJob(ctx, id)
}

// List returns the most recent jobs, at most limit when limit is positive.
func (r *Runner) List(ctx context.Context, limit int) ([]*core.Job, error) {
	return r.store.ListJobs(ctx, limit)
}

// Close cancels running jobs and waits for every job goroutine to return.
// Submit fails with ErrClosed afterwards.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
	return nil
}

// Package worker consumes background jobs: notification emails and provider meeting cleanup.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

const defaultDequeueTimeout = 5 * time.Second

// Processor executes one job.
type Processor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// JobQueue is the subset of the job queue the runner needs.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration, keys ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Runner dequeues jobs and dispatches them to processors by type.
type Runner struct {
	queue      JobQueue
	processors map[queue.JobType]Processor
	keys       []string
	backoff    time.Duration
	logger     *zap.Logger

	dequeueTimeout time.Duration
}

// NewRunner creates a runner. Jobs of types without a processor are retried into the DLQ.
func NewRunner(q JobQueue, backoff time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = queue.RetryBackoff
	}
	return &Runner{
		queue:      q,
		processors: make(map[queue.JobType]Processor),
		backoff:    backoff,
		logger:     logger,

		dequeueTimeout: defaultDequeueTimeout,
	}
}

// Register routes jobs of type t to p and starts listening on its queue.
func (r *Runner) Register(t queue.JobType, p Processor) error {
	key, err := queue.KeyFor(t)
	if err != nil {
		return err
	}
	if _, ok := r.processors[t]; !ok {
		r.keys = append(r.keys, key)
	}
	r.processors[t] = p
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := r.queue.Dequeue(ctx, r.dequeueTimeout, r.keys...)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Warn("dequeue error", zap.Error(err))
			r.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		r.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("queue", key))
		if !r.handle(ctx, job) {
			r.sleep(ctx)
		}
	}
}

// handle processes one job and reports whether it succeeded. Failed jobs go back on their queue
// or, after queue.MaxRetries, to the DLQ.
func (r *Runner) handle(ctx context.Context, job *queue.Job) bool {
	p, ok := r.processors[job.Type]
	var err error
	if !ok {
		err = errUnknownJob(job.Type)
	} else {
		err = p.Process(ctx, job)
	}
	if err == nil {
		return true
	}

	r.logger.Error("job failed",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)
	if reErr := r.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
		r.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
	}
	return false
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.backoff):
	}
}

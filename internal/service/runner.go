package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// JobRunner runs background jobs on their own goroutines. Every job gets a
// context that is canceled by Stop, so shutdown can interrupt jobs and wait
// for their final writes.
type JobRunner struct {
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]string
}

func NewJobRunner(logger *zap.Logger) *JobRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]string),
	}
}

// Go starts fn for the job. onPanic receives a recovered panic together with
// its stack so the job can be marked failed.
func (r *JobRunner) Go(kind, id string, fn func(ctx context.Context), onPanic func(err error, stack string)) {
	r.mu.Lock()
	r.running[id] = kind
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.running, id)
			r.mu.Unlock()
		}()
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				r.logger.Error("Panic in background job",
					zap.String("kind", kind),
					zap.String("job_id", id),
					zap.Any("panic", rec))
				if onPanic != nil {
					onPanic(fmt.Errorf("panic: %v", rec), stack)
				}
			}
		}()

		fn(r.ctx)
	}()
}

// Running returns the ids of jobs of the given kind still executing.
func (r *JobRunner) Running(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, k := range r.running {
		if k == kind {
			ids = append(ids, id)
		}
	}
	return ids
}

// Wait blocks until every started job has returned.
func (r *JobRunner) Wait() {
	r.wg.Wait()
}

// Stop cancels all job contexts and waits for the jobs to return or ctx to end.
func (r *JobRunner) Stop(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop job runner: %w", ctx.Err())
	}
}

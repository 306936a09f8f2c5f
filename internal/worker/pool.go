// Package worker runs background tasks on a bounded pool with at most one
// in-flight task per key.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned when a task for the same key is still running.
	ErrBusy = errors.New("a task for this key is already running")

	// ErrClosed is returned by Go after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Locker extends per-key exclusion across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(ctx context.Context) error, bool, error)
}

// Observer is told about task lifecycle events.
type Observer interface {
	TaskStarted(key string)
	TaskFinished(key string, elapsed time.Duration, panicked bool)
	TaskRejected(key string)
}

type noopObserver struct{}

func (noopObserver) TaskStarted(string)                       {}
func (noopObserver) TaskFinished(string, time.Duration, bool) {}
func (noopObserver) TaskRejected(string)                      {}

// Pool bounds concurrency with a weighted semaphore.
type Pool struct {
	sem      *semaphore.Weighted
	log      *slog.Logger
	observer Observer
	locker   Locker
	lockTTL  time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// WithLocker adds a distributed lock taken for the duration of each task.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(p *Pool) {
		p.locker = l
		p.lockTTL = ttl
	}
}

// New creates a pool running at most size tasks at once.
func New(size int, opts ...Option) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		sem:      semaphore.NewWeighted(int64(size)),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: noopObserver{},
		lockTTL:  10 * time.Minute,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Go schedules fn under key. It returns ErrBusy without running fn when a
// task with the same key is queued or running. An empty key is never
// exclusive. fn receives a context that outlives the caller's cancellation
// but keeps its values.
func (p *Pool) Go(ctx context.Context, key string, fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if key != "" {
		if _, busy := p.inflight[key]; busy {
			p.mu.Unlock()
			p.observer.TaskRejected(key)
			return ErrBusy
		}
		p.inflight[key] = struct{}{}
	}
	p.wg.Add(1)
	p.mu.Unlock()

	unlock, err := p.lock(ctx, key)
	if err != nil {
		p.finish(key)
		if errors.Is(err, ErrBusy) {
			p.observer.TaskRejected(key)
		}
		return err
	}

	taskCtx := context.WithoutCancel(ctx)
	go func() {
		defer p.finish(key)
		defer func() {
			if unlock != nil {
				if err := unlock(taskCtx); err != nil {
					p.log.Warn("worker_unlock_failed", "key", key, "error", err)
				}
			}
		}()

		if err := p.sem.Acquire(taskCtx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)

		p.run(taskCtx, key, fn)
	}()
	return nil
}

func (p *Pool) lock(ctx context.Context, key string) (func(context.Context) error, error) {
	if p.locker == nil || key == "" {
		return nil, nil
	}
	unlock, ok, err := p.locker.TryLock(ctx, key, p.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", key, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return unlock, nil
}

func (p *Pool) run(ctx context.Context, key string, fn func(ctx context.Context)) {
	start := time.Now()
	p.observer.TaskStarted(key)
	panicked := false
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			p.log.Error("worker_task_panic", "key", key, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		p.observer.TaskFinished(key, time.Since(start), panicked)
	}()
	fn(ctx)
}

func (p *Pool) finish(key string) {
	p.mu.Lock()
	if key != "" {
		delete(p.inflight, key)
	}
	p.mu.Unlock()
	p.wg.Done()
}

// Busy reports whether a task for key is queued or running.
func (p *Pool) Busy(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[key]
	return ok
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close rejects new tasks and waits for running ones, or for ctx.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package worker runs accepted webhook deliveries on a bounded goroutine pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("worker queue is full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("worker pool is closed")
)

// Pool queues tasks without blocking the submitter and runs them on at most
// size goroutines. Tasks start in submission order.
type Pool struct {
	workers *ants.Pool
	queue   chan func()
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New creates a Pool with size workers and room for queueSize waiting tasks.
func New(size, queueSize int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	workers, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v any) {
			slog.Error("worker task panicked", "panic", v)
		}),
		ants.WithLogger(antsLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
	}
	go p.feed()
	return p, nil
}

// feed hands queued tasks to ants, waiting for a free worker each time.
func (p *Pool) feed() {
	defer close(p.done)
	for task := range p.queue {
		if err := p.workers.Submit(task); err != nil {
			slog.Error("worker submit failed", "error", err)
		}
	}
}

// Submit queues task and returns immediately.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	return p.workers.Running()
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.queue)
}

// Shutdown stops accepting tasks, drains the queue and waits for running
// tasks until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		p.workers.Release()
		return fmt.Errorf("drain worker queue: %w", ctx.Err())
	}

	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := p.workers.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release workers: %w", err)
	}
	return nil
}

type antsLogger struct{}

func (antsLogger) Printf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...), "component", "ants")
}

// Package worker runs background tasks with bounded concurrency and retry.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("worker queue closed")

// Task is a unit of background work. Run may be called more than once when
// it fails.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options configures a Queue.
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
	TaskTimeout time.Duration // per attempt
}

// DefaultOptions returns the queue defaults.
func DefaultOptions() Options {
	return Options{
		Workers:     2,
		Buffer:      64,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
		TaskTimeout: 60 * time.Second,
	}
}

// Queue is a fixed pool of workers draining a buffered task channel.
type Queue struct {
	opts   Options
	logger *zap.Logger
	tasks  chan Task

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue starts opts.Workers workers.
func NewQueue(opts Options, logger *zap.Logger) *Queue {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = def.TaskTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		opts:   opts,
		logger: logger.Named("worker"),
		tasks:  make(chan Task, opts.Buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.loop()
	}
	return q
}

// Submit enqueues t. It blocks while the buffer is full.
func (q *Queue) Submit(t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.tasks <- t
	return nil
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
}

func (q *Queue) run(t Task) {
	var err error
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		err = q.attempt(t)
		if err == nil {
			return
		}
		q.logger.Warn("task attempt failed",
			zap.String("task", t.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < q.opts.MaxAttempts && q.opts.Backoff > 0 {
			time.Sleep(q.opts.Backoff * time.Duration(attempt))
		}
	}
	q.logger.Error("task gave up",
		zap.String("task", t.Name),
		zap.Int("attempts", q.opts.MaxAttempts),
		zap.Error(err))
}

func (q *Queue) attempt(t Task) (err error) {
	ctx, cancel := context.WithTimeout(q.ctx, q.opts.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return t.Run(ctx)
}

type panicError struct{ value any }

func (p panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", p.value)
}

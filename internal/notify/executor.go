package notify

import (
	"log/slog"
	"sync"
)

// Executor runs delivery work in some context of the caller's choosing.
// Submit must not block on the work itself; it returns false once the
// executor no longer accepts work.
type Executor interface {
	Submit(fn func()) bool
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func()) bool

func (f ExecutorFunc) Submit(fn func()) bool { return f(fn) }

// Inline runs work on the submitting goroutine. Useful in tests and for
// observers that are themselves thread-safe and cheap.
var Inline Executor = ExecutorFunc(func(fn func()) bool {
	fn()
	return true
})

// Queue is a serial executor: work runs one item at a time, in submission
// order, on a single goroutine. Submission never blocks on running work.
type Queue struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewQueue starts a serial queue. name only appears in logs.
func NewQueue(name string) *Queue {
	q := &Queue{
		name:   name,
		logger: slog.Default().With("component", "notify", "queue", name),
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit appends fn to the queue.
func (q *Queue) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return true
}

// Len returns the number of items waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting work, runs everything already submitted, and waits
// for the worker to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.runOne(fn)
	}
}

func (q *Queue) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queued work panicked", "panic", r)
		}
	}()
	fn()
}

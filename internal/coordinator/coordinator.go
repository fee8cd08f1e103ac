// Package coordinator owns every mutation of the library. Requests are
// queued and applied one at a time by a single writer goroutine, each as one
// atomic unit of work, and each committed change is published to observers.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shoebox/internal/blobstore"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/notify"
	"shoebox/internal/store"
)

const (
	defaultQueueCapacity = 256
	unitTimeout          = 2 * time.Minute
)

// ArtifactScheduler accepts artifact generation work. Close waits for
// in-flight work, which may still submit AttachArtifact requests.
type ArtifactScheduler interface {
	Schedule(kind models.ArtifactKind, assetIDs []string)
	Close()
}

// Options tunes a Coordinator. The zero value is usable.
type Options struct {
	// QueueCapacity bounds the request queue; submitters block when full.
	QueueCapacity int
	// Callbacks runs completion callbacks. When nil the coordinator owns a
	// serial queue and closes it on Close.
	Callbacks notify.Executor
	// Blobs stores artifact bytes. Artifact and GC operations fail without it.
	Blobs  blobstore.Store
	Logger *slog.Logger
}

// job is one queued request: run mutates inside the unit, afterCommit runs
// on the writer once the unit is durable, afterRollback once it is
// abandoned, and complete reports the outcome.
type job struct {
	op            string
	run           func(ctx context.Context, u store.Unit) error
	afterCommit   func(ctx context.Context)
	afterRollback func(ctx context.Context)
	complete      func(err error)
}

// Coordinator is the library's single writer.
type Coordinator struct {
	store    store.WriteStore
	registry *notify.Registry
	blobs    blobstore.Store
	logger   *slog.Logger

	callbacks     notify.Executor
	ownsCallbacks *notify.Queue
	ownsRegistry  bool

	reqs       chan *job
	workerDone chan struct{}
	seq        uint64

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	schedMu   sync.RWMutex
	scheduler ArtifactScheduler
}

// New starts a coordinator over st. Notifications go to registry, which is
// created when nil.
func New(st store.WriteStore, registry *notify.Registry, opts Options) *Coordinator {
	ownsRegistry := registry == nil
	if ownsRegistry {
		registry = notify.NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "coordinator")
	}
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	c := &Coordinator{
		store:        st,
		registry:     registry,
		ownsRegistry: ownsRegistry,
		blobs:        opts.Blobs,
		logger:       logger,
		callbacks:    opts.Callbacks,
		reqs:         make(chan *job, capacity),
		workerDone:   make(chan struct{}),
	}
	if c.callbacks == nil {
		c.ownsCallbacks = notify.NewQueue("callbacks")
		c.callbacks = c.ownsCallbacks
	}
	go c.work()
	return c
}

// Registry returns the registry notifications are published to.
func (c *Coordinator) Registry() *notify.Registry {
	return c.registry
}

// Register is shorthand for Registry().Register.
func (c *Coordinator) Register(observer notify.Observer, executor notify.Executor) notify.Registration {
	return c.registry.Register(observer, executor)
}

// Unregister is shorthand for Registry().Unregister.
func (c *Coordinator) Unregister(reg notify.Registration) bool {
	return c.registry.Unregister(reg)
}

// SetArtifactScheduler installs the pool that serves RequestThumbnails and
// RequestTextScan.
func (c *Coordinator) SetArtifactScheduler(s ArtifactScheduler) {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	c.scheduler = s
}

// ReportArtifactFailure forwards a per-asset generation failure to observers.
func (c *Coordinator) ReportArtifactFailure(assetID string, err error) {
	err = liberr.Artifact(assetID, err, 0)
	c.logger.Warn("artifact generation failed", "asset_id", assetID, "error", err)
	c.registry.ReportFailure(assetID, err)
}

// Close drains in order: artifact work, queued writes, callbacks, then the
// observer queues of a registry the coordinator created.
// Requests submitted afterwards complete with liberr.ErrClosed.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.schedMu.RLock()
		sched := c.scheduler
		c.schedMu.RUnlock()
		if sched != nil {
			sched.Close()
		}

		c.mu.Lock()
		c.closed = true
		close(c.reqs)
		c.mu.Unlock()
		<-c.workerDone

		if c.ownsCallbacks != nil {
			c.ownsCallbacks.Close()
		}
		if c.ownsRegistry {
			c.registry.Close()
		}
	})
	return nil
}

func (c *Coordinator) submit(j *job) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		c.deliver(func() { j.complete(liberr.ErrClosed) })
		return
	}
	c.reqs <- j
	c.mu.RUnlock()
}

// deliver runs fn on the callback executor, or inline when the executor has
// stopped accepting work, so every callback runs exactly once.
func (c *Coordinator) deliver(fn func()) {
	if !c.callbacks.Submit(fn) {
		fn()
	}
}

func (c *Coordinator) work() {
	defer close(c.workerDone)
	for j := range c.reqs {
		c.execute(j)
	}
}

func (c *Coordinator) execute(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), unitTimeout)
	defer cancel()

	opID := uuid.NewString()
	start := time.Now()
	n, err := c.runUnit(ctx, j)
	switch {
	case err == nil && j.afterCommit != nil:
		j.afterCommit(ctx)
	case err != nil && j.afterRollback != nil:
		j.afterRollback(context.WithoutCancel(ctx))
	}

	logger := c.logger.With("op", j.op, "op_id", opID, "duration", time.Since(start))
	if err != nil {
		logger.Warn("unit rolled back", "kind", liberr.KindOf(err).String(), "code", liberr.CodeOf(err), "error", err)
	} else {
		logger.Debug("unit committed", "changed", !n.Empty())
	}

	if err == nil && !n.Empty() {
		c.seq++
		c.registry.Publish(n.WithSeq(c.seq))
	}
	c.deliver(func() { j.complete(err) })
}

// runUnit applies j inside one transaction, bracketed by snapshots. Any
// failure, including a panic in j.run, rolls the whole unit back.
func (c *Coordinator) runUnit(ctx context.Context, j *job) (n models.ChangeNotification, err error) {
	u, err := c.store.Begin(ctx)
	if err != nil {
		return n, liberr.Store(fmt.Errorf("begin unit: %w", err), liberr.CodeStoreFailure)
	}
	committed := false
	defer func() {
		if r := recover(); r != nil {
			err = liberr.Store(fmt.Errorf("unit %s panicked: %v", j.op, r), liberr.CodeStoreFailure)
		}
		if !committed {
			_ = u.Rollback()
		}
	}()

	before, err := u.Snapshot(ctx)
	if err != nil {
		return n, liberr.Store(fmt.Errorf("snapshot: %w", err), liberr.CodeStoreFailure)
	}
	if err := j.run(ctx, u); err != nil {
		return n, liberr.Classify(err)
	}
	after, err := u.Snapshot(ctx)
	if err != nil {
		return n, liberr.Store(fmt.Errorf("snapshot: %w", err), liberr.CodeStoreFailure)
	}
	if err := u.Commit(); err != nil {
		return n, liberr.Store(fmt.Errorf("commit: %w", err), liberr.CodeCommitFailed)
	}
	committed = true
	return notify.Diff(before, after), nil
}

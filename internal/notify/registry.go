package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"shoebox/internal/models"
)

// Observer receives committed change notifications and per-asset artifact
// generation failures. Notifications may be delivered more than once.
type Observer interface {
	OnChangeNotification(n models.ChangeNotification)
	OnArtifactGenerationFailed(assetID string, err error)
}

// Funcs adapts plain functions to Observer. Nil fields are ignored.
type Funcs struct {
	Change  func(n models.ChangeNotification)
	Failure func(assetID string, err error)
}

func (f Funcs) OnChangeNotification(n models.ChangeNotification) {
	if f.Change != nil {
		f.Change(n)
	}
}

func (f Funcs) OnArtifactGenerationFailed(assetID string, err error) {
	if f.Failure != nil {
		f.Failure(assetID, err)
	}
}

// Registration identifies one call to Register. Generation distinguishes
// registrations across re-registration of the same observer, so a stale
// handle cannot remove a newer registration.
type Registration struct {
	ID         string
	Generation uint64
}

type entry struct {
	reg      Registration
	observer Observer
	executor Executor
	owned    *Queue
}

// Registry holds the observers and the executor each one is delivered on.
type Registry struct {
	logger *slog.Logger

	mu         sync.RWMutex
	generation uint64
	entries    map[string]*entry
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default().With("component", "notify"),
		entries: map[string]*entry{},
	}
}

// Register adds observer; its deliveries run on executor. A nil executor
// gives the registration its own serial Queue, so the observer never runs on
// the publishing goroutine and may call back into the coordinator. Inline
// observers must not.
func (r *Registry) Register(observer Observer, executor Executor) Registration {
	var owned *Queue
	if executor == nil {
		owned = NewQueue("observer")
		executor = owned
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	reg := Registration{ID: uuid.NewString(), Generation: r.generation}
	r.entries[reg.ID] = &entry{reg: reg, observer: observer, executor: executor, owned: owned}
	r.order = append(r.order, reg.ID)
	return reg
}

// Unregister removes reg. Deliveries already handed to the executor but not
// yet started are dropped. It reports whether reg was live.
func (r *Registry) Unregister(reg Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[reg.ID]
	if !ok || e.reg.Generation != reg.Generation {
		return false
	}
	delete(r.entries, reg.ID)
	for i, id := range r.order {
		if id == reg.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if e.owned != nil {
		// Unregister may run on the queue itself, so it is not waited for.
		go e.owned.Close()
	}
	return true
}

// Close drains the queues the registry created for observers registered
// without an executor. Registrations stay live; later deliveries to those
// observers are rejected.
func (r *Registry) Close() {
	r.mu.RLock()
	var owned []*Queue
	for _, id := range r.order {
		if q := r.entries[id].owned; q != nil {
			owned = append(owned, q)
		}
	}
	r.mu.RUnlock()
	for _, q := range owned {
		q.Close()
	}
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Publish delivers n to every live observer on its executor.
func (r *Registry) Publish(n models.ChangeNotification) {
	for _, e := range r.snapshot() {
		e := e
		r.submit(e, func() { e.observer.OnChangeNotification(n) })
	}
}

// ReportFailure delivers an artifact generation failure to every observer.
func (r *Registry) ReportFailure(assetID string, err error) {
	for _, e := range r.snapshot() {
		e := e
		r.submit(e, func() { e.observer.OnArtifactGenerationFailed(assetID, err) })
	}
}

func (r *Registry) submit(e *entry, deliver func()) {
	ok := e.executor.Submit(func() {
		if !r.live(e.reg) {
			return
		}
		deliver()
	})
	if !ok {
		r.logger.Warn("observer executor rejected delivery", "registration", e.reg.ID)
	}
}

func (r *Registry) live(reg Registration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[reg.ID]
	return ok && e.reg.Generation == reg.Generation
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// Package artifact derives thumbnails and extracted text from asset sources
// on a bounded worker pool. Results re-enter the writer as AttachArtifact
// requests; failures are reported per asset and never stop the pool.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shoebox/internal/access"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
)

const (
	defaultWorkers       = 4
	defaultQueueCapacity = 256
	generateTimeout      = time.Minute
)

// ErrNothingToGenerate is returned by a generator when a supported asset
// simply has nothing to derive, such as an audio file without cover art.
// It is not reported as a failure.
var ErrNothingToGenerate = errors.New("nothing to generate")

// Generator derives one kind of artifact from an asset's source bytes.
type Generator interface {
	Kind() models.ArtifactKind
	Supports(asset models.Asset) bool
	Generate(ctx context.Context, asset models.Asset, tok *access.Token) (models.GeneratedArtifact, error)
}

// AssetReader is the read side the pool needs.
type AssetReader interface {
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
}

// Attacher accepts generated artifacts and per-asset failures.
type Attacher interface {
	AttachArtifact(assetID string, artifact models.GeneratedArtifact, done func(blobID string, err error))
	ReportArtifactFailure(assetID string, err error)
}

// PoolConfig sizes a Pool. Zero values select defaults.
type PoolConfig struct {
	Workers       int
	QueueCapacity int
}

// Stats counts per-asset outcomes since the pool started.
type Stats struct {
	Attached int `json:"attached" yaml:"attached"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Failed   int `json:"failed" yaml:"failed"`
}

type task struct {
	kind    models.ArtifactKind
	assetID string
}

// Pool runs generators for scheduled assets, each asset independently.
type Pool struct {
	reader     AssetReader
	resolver   access.Resolver
	attacher   Attacher
	generators map[models.ArtifactKind]Generator
	logger     *slog.Logger

	tasks chan task
	wg    sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	statsMu sync.Mutex
	stats   Stats
}

// NewPool starts cfg.Workers goroutines serving the given generators.
func NewPool(cfg PoolConfig, reader AssetReader, resolver access.Resolver, attacher Attacher, generators ...Generator) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	p := &Pool{
		reader:     reader,
		resolver:   resolver,
		attacher:   attacher,
		generators: make(map[models.ArtifactKind]Generator, len(generators)),
		logger:     slog.Default().With("component", "artifact"),
		tasks:      make(chan task, capacity),
	}
	for _, g := range generators {
		p.generators[g.Kind()] = g
	}
	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				p.process(t)
			}
		}()
	}
	return p
}

// Schedule queues assetIDs for kind. It blocks while the queue is full.
// Work scheduled after Close is dropped.
func (p *Pool) Schedule(kind models.ArtifactKind, assetIDs []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("artifact request after close dropped", "kind", string(kind), "count", len(assetIDs))
		return
	}
	for _, id := range assetIDs {
		p.tasks <- task{kind: kind, assetID: id}
	}
}

// Close stops accepting work and waits for queued work to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

// Stats returns a copy of the outcome counters.
func (p *Pool) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Pool) process(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(t.assetID, liberr.Artifact(t.assetID, fmt.Errorf("generator panicked: %v", r), liberr.CodeGeneratorRejected))
		}
	}()

	gen, ok := p.generators[t.kind]
	if !ok {
		p.fail(t.assetID, liberr.Artifact(t.assetID, fmt.Errorf("no generator for %s", t.kind), liberr.CodeGeneratorRejected))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	asset, err := p.reader.GetAsset(ctx, t.assetID)
	if err != nil {
		p.fail(t.assetID, liberr.Artifact(t.assetID, liberr.Store(err, liberr.CodeStoreFailure), liberr.CodeGeneratorRejected))
		return
	}
	if asset == nil {
		p.fail(t.assetID, liberr.Artifact(t.assetID, liberr.NotFound(t.assetID, liberr.CodeAssetNotFound), liberr.CodeGeneratorRejected))
		return
	}
	if !gen.Supports(*asset) {
		p.skip(t, "unsupported kind")
		return
	}

	var out models.GeneratedArtifact
	err = access.With(ctx, p.resolver, asset.SourceRef, func(tok *access.Token) error {
		var genErr error
		out, genErr = gen.Generate(ctx, *asset, tok)
		return genErr
	})
	if errors.Is(err, ErrNothingToGenerate) {
		p.skip(t, "nothing to generate")
		return
	}
	if err != nil {
		p.fail(t.assetID, liberr.Artifact(t.assetID, err, liberr.CodeDecodeFailed))
		return
	}
	out.Kind = gen.Kind()

	p.attacher.AttachArtifact(t.assetID, out, func(_ string, err error) {
		if err != nil {
			p.fail(t.assetID, liberr.Artifact(t.assetID, err, liberr.CodeAttachFailed))
			return
		}
		p.count(func(s *Stats) { s.Attached++ })
	})
}

func (p *Pool) skip(t task, reason string) {
	p.logger.Debug("artifact skipped", "asset_id", t.assetID, "kind", string(t.kind), "reason", reason)
	p.count(func(s *Stats) { s.Skipped++ })
}

func (p *Pool) fail(assetID string, err error) {
	p.count(func(s *Stats) { s.Failed++ })
	p.attacher.ReportArtifactFailure(assetID, err)
}

func (p *Pool) count(fn func(*Stats)) {
	p.statsMu.Lock()
	fn(&p.stats)
	p.statsMu.Unlock()
}

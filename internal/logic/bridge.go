package logic

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"crystal/internal/drs"
)

// Bridge answers the two questions the rest of the engine asks of logic.
type Bridge interface {
	IsConsistent(ctx context.Context, box *drs.Box) (bool, error)
	IsProvable(ctx context.Context, assumptions, theorem *drs.Box) (bool, error)
}

// ModelFinder decides satisfiability of a box over a finite domain.
type ModelFinder interface {
	HasModel(ctx context.Context, box *drs.Box) (bool, error)
}

// TheoremProver decides entailment between two boxes.
type TheoremProver interface {
	Prove(ctx context.Context, assumptions, theorem *drs.Box) (bool, error)
}

// DefaultCacheSize bounds the number of memoised verdicts.
const DefaultCacheSize = 4096

// Stats counts external inference work.
type Stats struct {
	ConsistencyChecks int
	ProofAttempts     int
	CacheHits         int
	Elapsed           time.Duration
}

// Prover implements Bridge on top of a model finder and a theorem prover.
// Verdicts are a pure function of the problem text, so they are memoised.
type Prover struct {
	finder ModelFinder
	prover TheoremProver
	logger *zap.Logger

	mu        sync.Mutex
	cache     map[string]bool
	cacheSize int
	stats     Stats
}

// NewProver creates a bridge. A nil logger disables logging.
func NewProver(finder ModelFinder, prover TheoremProver, logger *zap.Logger) *Prover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prover{
		finder:    finder,
		prover:    prover,
		logger:    logger,
		cache:     make(map[string]bool),
		cacheSize: DefaultCacheSize,
	}
}

// IsConsistent reports whether box has a model.
func (p *Prover) IsConsistent(ctx context.Context, box *drs.Box) (bool, error) {
	problem, err := ModelProblem(box)
	if err != nil {
		return false, err
	}
	key := "model\x00" + problem
	if v, ok := p.lookup(key); ok {
		return v, nil
	}

	start := time.Now()
	ok, err := p.finder.HasModel(ctx, box)
	elapsed := time.Since(start)
	p.record(func(s *Stats) { s.ConsistencyChecks++; s.Elapsed += elapsed })
	if err != nil {
		return false, err
	}
	p.logger.Debug("consistency check",
		zap.Int("domain_size", DomainSize(box)),
		zap.Bool("consistent", ok),
		zap.Duration("elapsed", elapsed))
	p.store(key, ok)
	return ok, nil
}

// IsProvable reports whether theorem follows from assumptions.
func (p *Prover) IsProvable(ctx context.Context, assumptions, theorem *drs.Box) (bool, error) {
	problem, err := ProofProblem(assumptions, theorem)
	if err != nil {
		return false, err
	}
	key := "proof\x00" + problem
	if v, ok := p.lookup(key); ok {
		return v, nil
	}

	start := time.Now()
	ok, err := p.prover.Prove(ctx, assumptions, theorem)
	elapsed := time.Since(start)
	p.record(func(s *Stats) { s.ProofAttempts++; s.Elapsed += elapsed })
	if err != nil {
		return false, err
	}
	p.logger.Debug("proof attempt",
		zap.String("theorem", theorem.String()),
		zap.Bool("proved", ok),
		zap.Duration("elapsed", elapsed))
	p.store(key, ok)
	return ok, nil
}

// Stats returns a snapshot of the work done so far.
func (p *Prover) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Prover) lookup(key string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.cache[key]
	if ok {
		p.stats.CacheHits++
	}
	return v, ok
}

func (p *Prover) store(key string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cache) >= p.cacheSize {
		clear(p.cache)
	}
	p.cache[key] = v
}

func (p *Prover) record(update func(*Stats)) {
	p.mu.Lock()
	update(&p.stats)
	p.mu.Unlock()
}

package stm

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Group owns the shared version clock and commit critical section for a
// family of cells. Cells created with NewCell can be used with any
// Group; most programs need only the package-level default Group, but a
// dedicated Group isolates its clock and statistics, which is useful in
// tests. Mirrors transaction_group.hpp's tx_group.
type Group struct {
	clock atomic.Uint64
	// mu's read-lock is held while sampling the clock for a new
	// transaction's snapshot; its write-lock is held by the sole
	// in-flight committer across the whole reserve/validate/publish/bump
	// sequence, matching group_lock_guard holding the exclusive lock for
	// the entire commit.
	mu   sync.RWMutex
	pool sync.Pool

	commitLockRetries int
	bufferCapacity    int
	backoff           BackoffPolicy
	logger            *slog.Logger

	counters counters
}

// NewGroup creates a Group configured by opts.
func NewGroup(opts ...Option) *Group {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	g := &Group{
		commitLockRetries: cfg.commitLockRetries,
		bufferCapacity:    cfg.bufferCapacity,
		backoff:           cfg.backoff,
		logger:            cfg.logger,
	}
	g.pool.New = func() any { return newManager(g.bufferCapacity) }
	return g
}

func (g *Group) currentVersion() uint64 {
	g.mu.RLock()
	v := g.clock.Load()
	g.mu.RUnlock()
	return v
}

// commitTicket reserves the next version number while the exclusive
// commit lock is held, and either confirms it (publishing the bumped
// clock) or aborts it (releasing the lock without advancing the clock).
type commitTicket struct {
	group   *Group
	version uint64
}

func (g *Group) reserveCommit() *commitTicket {
	g.mu.Lock()
	return &commitTicket{group: g, version: g.clock.Load() + 1}
}

func (t *commitTicket) confirm() {
	t.group.clock.Store(t.version)
	t.group.mu.Unlock()
}

func (t *commitTicket) abort() {
	t.group.mu.Unlock()
}

func (g *Group) acquireManager() *manager {
	return g.pool.Get().(*manager)
}

func (g *Group) releaseManager(m *manager) {
	g.pool.Put(m)
}

func (g *Group) logCommit(version uint64, writeCount int) {
	if g.logger != nil {
		g.logger.Debug("stm: commit", "version", version, "writes", writeCount)
	}
}

func (g *Group) logRetry(reason string, attempt int) {
	if g.logger != nil {
		g.logger.Debug("stm: retrying transaction", "reason", reason, "attempt", attempt)
	}
}

// Stats returns a snapshot of this Group's diagnostic counters.
func (g *Group) Stats() Stats {
	return g.counters.snapshot()
}

var (
	defaultGroupOnce sync.Once
	defaultGroupInst *Group
)

func defaultGroup() *Group {
	defaultGroupOnce.Do(func() { defaultGroupInst = NewGroup() })
	return defaultGroupInst
}

package stm

import "log/slog"

// config holds a Group's tunables. Built from defaultConfig and any
// Options passed to NewGroup, following Jekaa-go-mvcc-map's
// mvcc/options.go functional-options shape.
type config struct {
	bufferCapacity      int
	commitLockRetries   int
	backoff             BackoffPolicy
	logger              *slog.Logger
	maxWritesetForStack int
}

func defaultConfig() config {
	return config{
		bufferCapacity:      0, // unbounded ("paged") by default
		commitLockRetries:   8,
		backoff:             DefaultBackoffPolicy(),
		logger:              nil,
		maxWritesetForStack: 100,
	}
}

// Option configures a Group.
type Option func(*config)

// WithBufferCapacity bounds every transaction manager's speculative
// buffer to n total reads+writes, after which further opens fail with
// ErrBufferFull (the "fixed-arena" shape). n <= 0 means unbounded (the
// default "paged" shape).
func WithBufferCapacity(n int) Option {
	return func(c *config) { c.bufferCapacity = n }
}

// WithCommitLockRetries sets how many times a full commit spins trying
// to claim a cell's inactive slot before giving up and reporting a
// lock-failed conflict.
func WithCommitLockRetries(n int) Option {
	return func(c *config) { c.commitLockRetries = n }
}

// WithBackoff overrides the exponential backoff applied between
// Atomically retry attempts.
func WithBackoff(p BackoffPolicy) Option {
	return func(c *config) { c.backoff = p }
}

// WithLogger attaches a structured logger; Group emits debug-level
// events for commits and retries. Nil (the default) disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxWritesetSizeForStack is accepted for API parity with the
// original engine's same-named tunable but has no effect: Go slices are
// always heap-allocated regardless of size, so there is no stack/heap
// switch for library code to make (see DESIGN.md).
func WithMaxWritesetSizeForStack(n int) Option {
	return func(c *config) { c.maxWritesetForStack = n }
}

package stm

import (
	"errors"
	"time"
)

// BackoffPolicy controls the delay Atomically waits between retry
// attempts. Shape grounded on the ilock package's exponential-backoff
// constants (startingBackoff/maxBackoff/backoffFactor).
type BackoffPolicy struct {
	Start  time.Duration
	Max    time.Duration
	Factor float64
}

// DefaultBackoffPolicy returns the backoff Atomically uses if none is
// configured via WithBackoff.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Start: 50 * time.Microsecond, Max: 500 * time.Millisecond, Factor: 2}
}

func (p BackoffPolicy) wait(attempt int) {
	if attempt <= 0 {
		return
	}
	d := p.Start
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d >= p.Max {
			d = p.Max
			break
		}
	}
	time.Sleep(d)
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflictOnOpen) {
		return true
	}
	var c *ConflictOnCommitError
	return errors.As(err, &c)
}

// Atomically runs fn as a transaction against g (the package default
// Group if g is nil), committing and returning its result on success.
// On a conflict — at open or at commit — the transaction is rolled back
// and retried from scratch with an exponential backoff between
// attempts. A Retry() result is handled the same way unless it was
// produced inside an OrElse/Select branch, which catches Retry itself.
// An Abort() result is rolled back and returned to the caller without
// retrying.
func Atomically[R any](g *Group, fn func(*Tx) (R, error)) (R, error) {
	if g == nil {
		g = defaultGroup()
	}
	var zero R
	for attempt := 0; ; attempt++ {
		mgr := g.acquireManager()
		tx := newTx(g, mgr)

		result, err := fn(tx)

		switch {
		case err == nil:
			if cerr := tx.commit(); cerr != nil {
				g.releaseManager(mgr)
				if isConflict(cerr) {
					g.logRetry(cerr.Error(), attempt)
					g.backoff.wait(attempt)
					continue
				}
				return zero, cerr
			}
			g.releaseManager(mgr)
			return result, nil

		case errors.Is(err, ErrRetry), isConflict(err):
			tx.rollback()
			g.releaseManager(mgr)
			if errors.Is(err, ErrConflictOnOpen) {
				g.counters.openConflicts.Add(1)
			}
			g.logRetry(err.Error(), attempt)
			g.backoff.wait(attempt)
			continue

		default:
			var abortErr *AbortError
			if errors.As(err, &abortErr) {
				// tx.Abort rolled back the transaction it was called on;
				// if that was a nested child, tx itself is still live
				// and is rolled back here (a no-op otherwise).
				tx.rollback()
				g.releaseManager(mgr)
				return zero, err
			}
			// An ordinary user error: still try to commit, so side
			// effects made before the error reflect a consistent state,
			// then surface the original error to the caller.
			g.counters.userRollbacks.Add(1)
			if cerr := tx.commit(); cerr != nil {
				g.releaseManager(mgr)
				if isConflict(cerr) {
					g.backoff.wait(attempt)
					continue
				}
				return zero, cerr
			}
			g.releaseManager(mgr)
			return result, err
		}
	}
}

// Nested runs fn as a transaction nested inside tx, sharing tx's
// manager and snapshot version. On success its writes are folded into
// tx; the version clock and cell locks are never touched. On error the
// nested transaction is rolled back and the error is returned for the
// caller to handle (propagate, or catch a retry — see OrElse).
func Nested[R any](tx *Tx, fn func(*Tx) (R, error)) (R, error) {
	child := newTx(tx.group, tx.mgr)
	result, err := fn(child)
	if err != nil {
		child.rollback()
		return result, err
	}
	if cerr := child.commit(); cerr != nil {
		return result, cerr
	}
	return result, nil
}

// OrElse runs first as a nested transaction; if it signals Retry,
// first's effects are rolled back and second runs instead, nested the
// same way. Any other error from first propagates without trying
// second. Grounded on orelse.hpp's orelse_wrapper and adapted from the
// vsdmars-stm package's Select/catchRetry, but using ordinary (R, error)
// returns instead of panic/recover.
func OrElse[R any](tx *Tx, first, second func(*Tx) (R, error)) (R, error) {
	child := newTx(tx.group, tx.mgr)
	result, err := first(child)
	if err != nil {
		child.rollback()
		if errors.Is(err, ErrRetry) {
			return Nested(tx, second)
		}
		return result, err
	}
	if cerr := child.commit(); cerr != nil {
		return result, cerr
	}
	return result, nil
}

// Select runs fns in order, trying each as an OrElse alternative of the
// next whenever one signals Retry. Select(tx) with no branches itself
// signals Retry.
func Select[R any](tx *Tx, fns ...func(*Tx) (R, error)) (R, error) {
	var zero R
	switch len(fns) {
	case 0:
		return zero, tx.Retry()
	case 1:
		return Nested(tx, fns[0])
	default:
		return OrElse(tx, fns[0], func(t *Tx) (R, error) {
			return Select(t, fns[1:]...)
		})
	}
}

package stm

import (
	"runtime"
	"sync/atomic"
)

// cellID assigns every cell a monotonic identity at construction, used as
// the canonical ordering key for lock acquisition and for the sorted
// buffer lookup (see DESIGN.md — lookup.go). Avoids sorting by pointer
// value, which would need unsafe and isn't reproducible across runs.
var cellIDSeq atomic.Uint64

func nextCellID() uint64 {
	return cellIDSeq.Add(1)
}

// cellBase is the non-generic half of a Cell[T]: the packed version
// header and the per-slot reader/committer counters, mirroring
// shared_base.hpp's protocol without needing to know the cell's value
// type.
type cellBase struct {
	id  uint64
	hdr atomic.Uint64
	// lock[slot] is >0 while readers hold that slot open, or exactly 1
	// while a committer has claimed the inactive slot for writing.
	lock [2]atomic.Int32
}

func newCellBase() cellBase {
	return cellBase{id: nextCellID()}
}

func (cb *cellBase) cellID() uint64 { return cb.id }

func (cb *cellBase) header() uint64 { return cb.hdr.Load() }

// acquireForRead opens the currently-active slot for reading, failing
// with ErrConflictOnOpen if the cell has already moved past snapshot.
func (cb *cellBase) acquireForRead(snapshot uint64) (uint8, error) {
	hdr := cb.hdr.Load()
	if !validAt(hdr, snapshot) {
		return 0, ErrConflictOnOpen
	}
	slot := activeOffset(hdr)
	cb.lock[slot].Add(1)
	if cb.hdr.Load() != hdr {
		// the cell flipped underneath us between the load and the
		// counter bump; the slot we bumped may already be reused.
		cb.lock[slot].Add(-1)
		return 0, ErrConflictOnOpen
	}
	return slot, nil
}

func (cb *cellBase) releaseReader(slot uint8) {
	cb.lock[slot].Add(-1)
}

// lockForCommit claims the inactive slot exclusively for a committing
// transaction, spinning up to retries times. Returns ok=false if the
// cell has already moved past snapshot, or if the slot could not be
// claimed within the retry budget.
func (cb *cellBase) lockForCommit(snapshot uint64, retries int) (slot uint8, ok bool) {
	hdr := cb.hdr.Load()
	if !validAt(hdr, snapshot) {
		return 0, false
	}
	inactive := inactiveOffset(hdr)
	for attempt := 0; attempt < retries; attempt++ {
		if cb.lock[inactive].CompareAndSwap(0, 1) {
			if cb.hdr.Load() != hdr {
				cb.lock[inactive].Add(-1)
				return 0, false
			}
			return inactive, true
		}
		runtime.Gosched()
	}
	return 0, false
}

// releaseUnflipped backs out of a claimed-but-not-yet-published commit
// slot, used on the conflict paths of a full commit.
func (cb *cellBase) releaseUnflipped(slot uint8) {
	cb.lock[slot].Add(-1)
}

// updateVersionAndFlip publishes the slot a committer locked as the new
// active slot under newVersion. Must run while still holding the
// commit lock on that slot.
func (cb *cellBase) updateVersionAndFlip(newVersion uint64) {
	hdr := cb.hdr.Load()
	cb.hdr.Store(flippedHeader(hdr, newVersion))
}

func (cb *cellBase) releaseCommitter(slot uint8) {
	cb.lock[slot].Add(-1)
}

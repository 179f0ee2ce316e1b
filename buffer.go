package stm

// readRecord is one entry in the speculative read log: the cell opened
// and the slot it was read from, so validation can re-check the cell's
// header and a rollback can release the reader count.
type readRecord struct {
	cell *cellBase
	slot uint8
}

// writeEntry is one entry in the speculative write set. It carries the
// cell, a private copy of the pending value, and (for entries reopened
// from an enclosing transaction) a link back to the outer entry plus the
// closure that folds this entry's value into it on nested commit.
// publish is set for entries opened fresh at this level; it copies the
// private value into the cell's inactive slot at full-commit time.
type writeEntry struct {
	cell  *cellBase
	outer *writeEntry
	value any

	publish     func()
	foldToOuter func()

	lockedSlot uint8
	dissolved  bool
}

// Marker is a saved position in a buffer's two append-only frontiers,
// returned by buffer.position and consumed by buffer.release to discard
// everything recorded since.
type Marker struct {
	readPos  int
	writePos int
}

// buffer is the append-only speculative log a transaction records reads
// and writes into as it runs. It mirrors fixed_array_buffer.hpp's two
// frontiers (pos_r/pos_rw); unlike the original's byte arena it's backed
// by plain Go slices of pointers, since entry addresses only need to
// stay stable, not contiguous (see DESIGN.md).
type buffer struct {
	reads  []readRecord
	writes []*writeEntry
	// capacity is the fixed-arena cap (0 = unbounded/"paged" shape).
	capacity int
}

func newBuffer(capacity int) *buffer {
	return &buffer{capacity: capacity}
}

func (b *buffer) position() Marker {
	return Marker{readPos: len(b.reads), writePos: len(b.writes)}
}

func (b *buffer) release(m Marker) {
	b.reads = b.reads[:m.readPos]
	b.writes = b.writes[:m.writePos]
}

func (b *buffer) full() bool {
	return b.capacity > 0 && len(b.reads)+len(b.writes) >= b.capacity
}

func (b *buffer) pushRead(r readRecord) {
	b.reads = append(b.reads, r)
}

func (b *buffer) pushWrite(e *writeEntry) {
	b.writes = append(b.writes, e)
}

func (b *buffer) readsSince(m Marker, fn func(readRecord)) {
	for _, r := range b.reads[m.readPos:] {
		fn(r)
	}
}

func (b *buffer) reset() {
	b.reads = b.reads[:0]
	b.writes = b.writes[:0]
}

package stm

// Cell is a versioned, two-slot transactional memory location holding a
// value of type T. Create one with NewCell and open it for reading or
// writing inside a transaction body passed to Atomically.
type Cell[T any] struct {
	base  cellBase
	slots [2]T
}

// NewCell creates a cell holding initial, visible to any transaction
// whose snapshot version is at or after the cell's creation.
func NewCell[T any](initial T) *Cell[T] {
	c := &Cell[T]{base: newCellBase()}
	c.slots[0] = initial
	c.slots[1] = initial
	return c
}

// Value reads the cell's currently-active slot directly, without going
// through a transaction. It is only safe to call once no concurrent
// writer can be touching the cell (e.g. after joining the goroutines
// that might write it) — the same way the teacher's own tests read a
// Var's underlying field directly after wg.Wait().
func (c *Cell[T]) Value() T {
	hdr := c.base.header()
	return c.slots[activeOffset(hdr)]
}

// OpenR opens the cell for reading inside tx. If tx already holds a
// write handle on this cell (at this level or an enclosing one) it
// returns that handle's pending value instead of the committed one.
func (c *Cell[T]) OpenR(tx *Tx) (T, error) {
	var zero T
	if !tx.live {
		return zero, ErrTxDone
	}
	if w := tx.mgr.lk.findAnywhere(c.base.cellID()); w != nil {
		return *(w.value.(*T)), nil
	}
	if err := tx.mgr.checkCapacity(); err != nil {
		return zero, err
	}
	slot, err := c.base.acquireForRead(tx.snapshotVer)
	if err != nil {
		return zero, err
	}
	tx.mgr.buf.pushRead(readRecord{cell: &c.base, slot: slot})
	return c.slots[slot], nil
}

// OpenRW opens the cell for reading and writing inside tx, returning a
// pointer into a private, speculative copy. Reopening a cell already
// open at the current nesting level returns the same pointer; reopening
// one open in an enclosing transaction allocates a fresh copy chained to
// the outer entry so a later nested commit can fold the value back in.
func (c *Cell[T]) OpenRW(tx *Tx) (*T, error) {
	if !tx.live {
		return nil, ErrTxDone
	}
	cb := &c.base

	if w := tx.mgr.lk.findInCurrentLevel(cb.cellID()); w != nil {
		return w.value.(*T), nil
	}

	if outer := tx.mgr.lk.findInEnclosing(cb.cellID()); outer != nil {
		if err := tx.mgr.checkCapacity(); err != nil {
			return nil, err
		}
		outerPtr := outer.value.(*T)
		nv := new(T)
		*nv = *outerPtr
		e := &writeEntry{cell: cb, outer: outer, value: nv}
		e.foldToOuter = func() { *outerPtr = *nv }
		tx.mgr.openWrite(e)
		return nv, nil
	}

	if err := tx.mgr.checkCapacity(); err != nil {
		return nil, err
	}
	slot, err := cb.acquireForRead(tx.snapshotVer)
	if err != nil {
		return nil, err
	}
	v := c.slots[slot]
	cb.releaseReader(slot)

	nv := new(T)
	*nv = v
	inactive := 1 - slot
	e := &writeEntry{cell: cb, value: nv}
	e.publish = func() { c.slots[inactive] = *nv }
	tx.mgr.openWrite(e)
	return nv, nil
}

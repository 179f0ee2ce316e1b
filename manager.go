package stm

// manager is the scratch state one "thread" of transaction activity
// needs: its speculative buffer, the sorted lookup index over the
// buffer's writes, the nesting depth, the snapshot version inherited by
// nested transactions, and the queue of pending Snapshot operations.
//
// Go has no supported goroutine-local storage, so unlike the C++
// original's per-thread singleton this is threaded explicitly through
// Tx (itself passed explicitly through the transaction body, the same
// way the teacher threads *Txn through its Atomically callback).
// Instances are pooled per Group (see group.go) so repeated Atomically
// calls reuse scratch space instead of allocating it fresh every retry.
type manager struct {
	buf   *buffer
	lk    *lookup
	depth int

	// lastVersion is the snapshot version sampled for the current
	// outermost transaction; nested transactions inherit it rather than
	// re-reading the clock.
	lastVersion uint64

	snapshots []snapshotOp
}

func newManager(bufferCapacity int) *manager {
	return &manager{buf: newBuffer(bufferCapacity), lk: newLookup()}
}

// begin enters one more level of nesting, resetting all scratch state
// first if this is a fresh outermost transaction. Returns whether this
// is the outermost level.
func (m *manager) begin() (isOuter bool) {
	m.depth++
	isOuter = m.depth == 1
	if isOuter {
		m.buf.reset()
		m.lk.reset()
		m.snapshots = m.snapshots[:0]
	}
	m.lk.pushLevel()
	return isOuter
}

func (m *manager) checkCapacity() error {
	if m.buf.full() {
		return ErrBufferFull
	}
	return nil
}

// openWrite records a freshly-opened write handle in both the buffer's
// append-order write log and the sorted lookup index.
func (m *manager) openWrite(e *writeEntry) {
	m.buf.pushWrite(e)
	m.lk.insert(e)
}

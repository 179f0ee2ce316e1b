package stm

// snapshotOp is a pending Snapshot(tx, dst, src) call: at full-commit
// time it copies *src into *dst, atomically with the rest of the write
// set. It reads src at apply time, not at enqueue time, mirroring
// add_snapshot/apply_snapshot.
type snapshotOp struct {
	apply func()
}

// Tx is a single transaction attempt — the per-invocation state spec.md
// §4.6 describes. A Tx is only ever valid for the duration of the
// closure it was handed to; it must not be retained afterward.
type Tx struct {
	group *Group
	mgr   *manager

	snapshotVer uint64
	mark        Marker
	snapMark    int

	live bool
}

func newTx(group *Group, mgr *manager) *Tx {
	isOuter := mgr.begin()
	if isOuter {
		mgr.lastVersion = group.currentVersion()
	}
	return &Tx{
		group:       group,
		mgr:         mgr,
		snapshotVer: mgr.lastVersion,
		mark:        mgr.buf.position(),
		snapMark:    len(mgr.snapshots),
		live:        true,
	}
}

func (tx *Tx) isOuter() bool { return tx.mgr.depth == 1 }

// Retry signals that the transaction cannot usefully proceed from its
// current state and should be retried once something it read changes.
// Used inside OrElse to mean "try the alternative"; outside any OrElse
// it is treated like any other conflict by Atomically.
func (tx *Tx) Retry() error { return ErrRetry }

// Abort unconditionally rolls the transaction back and wraps cause so
// Atomically returns it to the caller instead of retrying.
func (tx *Tx) Abort(cause error) error {
	tx.rollback()
	return &AbortError{Err: cause}
}

// Snapshot enqueues a commit-time copy of *src into *dst. The copy runs
// during the outermost transaction's full commit, after validation
// succeeds and before the write set is published, so it observes src's
// value as of that instant rather than as of the Snapshot call.
func Snapshot[T any](tx *Tx, dst, src *T) {
	tx.mgr.snapshots = append(tx.mgr.snapshots, snapshotOp{
		apply: func() { *dst = *src },
	})
}

func (tx *Tx) rollback() {
	if !tx.live {
		return
	}
	mgr := tx.mgr
	mgr.buf.readsSince(tx.mark, func(r readRecord) { r.cell.releaseReader(r.slot) })
	mgr.buf.release(tx.mark)
	mgr.lk.popLevel()
	mgr.snapshots = mgr.snapshots[:tx.snapMark]
	mgr.depth--
	tx.live = false
}

// commit dispatches to a nested merge or a full, version-clock-bumping
// commit depending on nesting depth.
func (tx *Tx) commit() error {
	if !tx.live {
		return ErrTxDone
	}
	if !tx.isOuter() {
		tx.nestedCommit()
		return nil
	}
	return tx.fullCommit()
}

// nestedCommit folds a nested transaction's write set into its parent's:
// entries reopened from the parent get their value folded back in and
// are dropped; entries opened fresh at this level survive into the
// parent's sub-range. It never touches the version clock or any
// cell's lock — only the outermost commit does that.
func (tx *Tx) nestedCommit() {
	mgr := tx.mgr
	for _, e := range mgr.lk.currentLevel() {
		if e.outer != nil {
			e.foldToOuter()
			e.dissolved = true
		}
	}
	mgr.lk.mergeIntoParent()
	mgr.depth--
	tx.live = false
}

func (tx *Tx) fullCommit() error {
	mgr := tx.mgr
	writes := mgr.lk.currentLevel() // already sorted by cellID: canonical lock order

	// Read-only transactions have nothing to lock or publish, so there is
	// no need to reserve a commit version at all: mirrors the teacher's
	// runWithTxn returning early when the write set is empty. Falls
	// through to the general path if a Snapshot was queued, since that
	// still has a commit-time effect to apply.
	if len(writes) == 0 && len(mgr.snapshots) == tx.snapMark {
		ok := tx.validate(writes)
		mgr.buf.readsSince(Marker{}, func(r readRecord) { r.cell.releaseReader(r.slot) })
		mgr.lk.popLevel()
		mgr.buf.reset()
		mgr.snapshots = mgr.snapshots[:0]
		mgr.depth--
		tx.live = false
		if !ok {
			tx.group.counters.validateConflicts.Add(1)
			return &ConflictOnCommitError{Kind: ValidateFailed}
		}
		tx.group.counters.commits.Add(1)
		return nil
	}

	locked := make([]*writeEntry, 0, len(writes))
	for _, w := range writes {
		slot, ok := w.cell.lockForCommit(tx.snapshotVer, tx.group.commitLockRetries)
		if !ok {
			for _, l := range locked {
				l.cell.releaseUnflipped(l.lockedSlot)
			}
			tx.group.counters.lockConflicts.Add(1)
			tx.rollback()
			return &ConflictOnCommitError{Kind: LockFailed}
		}
		w.lockedSlot = slot
		locked = append(locked, w)
	}

	ticket := tx.group.reserveCommit()

	if !tx.validate(writes) {
		for _, w := range writes {
			w.cell.releaseUnflipped(w.lockedSlot)
		}
		ticket.abort()
		tx.group.counters.validateConflicts.Add(1)
		tx.rollback()
		return &ConflictOnCommitError{Kind: ValidateFailed}
	}

	for _, s := range mgr.snapshots {
		s.apply()
	}
	for _, w := range writes {
		w.publish()
		w.cell.updateVersionAndFlip(ticket.version)
	}
	for _, w := range writes {
		w.cell.releaseCommitter(w.lockedSlot)
	}
	ticket.confirm()

	mgr.buf.readsSince(Marker{}, func(r readRecord) { r.cell.releaseReader(r.slot) })
	mgr.lk.popLevel()
	mgr.buf.reset()
	mgr.snapshots = mgr.snapshots[:0]
	mgr.depth--
	tx.live = false

	tx.group.counters.commits.Add(1)
	tx.group.logCommit(ticket.version, len(writes))
	return nil
}

// validate re-checks every cell this transaction read (at any nesting
// level, since nested commits never release their reads) plus every
// cell it is about to write, confirming none moved past the snapshot
// version between open and commit.
func (tx *Tx) validate(writes []*writeEntry) bool {
	ok := true
	tx.mgr.buf.readsSince(Marker{}, func(r readRecord) {
		if !validAt(r.cell.header(), tx.snapshotVer) {
			ok = false
		}
	})
	if !ok {
		return false
	}
	for _, w := range writes {
		if !validAt(w.cell.header(), tx.snapshotVer) {
			return false
		}
	}
	return true
}

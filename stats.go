package stm

import "sync/atomic"

// Stats is a point-in-time snapshot of a Group's diagnostic counters.
type Stats struct {
	Commits           uint64
	OpenConflicts     uint64
	LockConflicts     uint64
	ValidateConflicts uint64
	UserRollbacks     uint64
}

// counters are the atomically-maintained live fields Stats is read from.
type counters struct {
	commits           atomic.Uint64
	openConflicts     atomic.Uint64
	lockConflicts     atomic.Uint64
	validateConflicts atomic.Uint64
	userRollbacks     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Commits:           c.commits.Load(),
		OpenConflicts:     c.openConflicts.Load(),
		LockConflicts:     c.lockConflicts.Load(),
		ValidateConflicts: c.validateConflicts.Load(),
		UserRollbacks:     c.userRollbacks.Load(),
	}
}

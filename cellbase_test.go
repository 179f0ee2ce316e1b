package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellIDsAreMonotonicAndUnique(t *testing.T) {
	a := newCellBase()
	b := newCellBase()
	require.Less(t, a.cellID(), b.cellID())
}

func TestAcquireForReadRejectsStaleSnapshot(t *testing.T) {
	cb := newCellBase()
	cb.hdr.Store(packHeader(5, 0))

	_, err := cb.acquireForRead(4)
	require.ErrorIs(t, err, ErrConflictOnOpen)

	slot, err := cb.acquireForRead(5)
	require.NoError(t, err)
	require.Equal(t, uint8(0), slot)
	cb.releaseReader(slot)
}

func TestLockForCommitClaimsInactiveSlot(t *testing.T) {
	cb := newCellBase()
	cb.hdr.Store(packHeader(1, 0))

	slot, ok := cb.lockForCommit(1, 4)
	require.True(t, ok)
	require.Equal(t, uint8(1), slot)

	// a second committer must not be able to claim the same slot.
	_, ok = cb.lockForCommit(1, 4)
	require.False(t, ok)

	cb.updateVersionAndFlip(2)
	cb.releaseCommitter(slot)

	require.Equal(t, uint64(2), headerVersion(cb.header()))
	require.Equal(t, uint8(1), activeOffset(cb.header()))
}

func TestLockForCommitRejectsStaleSnapshot(t *testing.T) {
	cb := newCellBase()
	cb.hdr.Store(packHeader(5, 0))

	_, ok := cb.lockForCommit(4, 4)
	require.False(t, ok)
}

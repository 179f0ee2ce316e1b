package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellValueReflectsLastCommit(t *testing.T) {
	g := NewGroup()
	c := NewCell(10)

	_, err := Atomically(g, func(tx *Tx) (struct{}, error) {
		v, err := c.OpenRW(tx)
		if err != nil {
			return struct{}{}, err
		}
		*v += 5
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 15, c.Value())
}

func TestOpenRWReopenAtSameLevelReturnsSameHandle(t *testing.T) {
	g := NewGroup()
	c := NewCell(1)

	_, err := Atomically(g, func(tx *Tx) (struct{}, error) {
		a, err := c.OpenRW(tx)
		require.NoError(t, err)
		b, err := c.OpenRW(tx)
		require.NoError(t, err)
		require.Same(t, a, b)
		*a = 99
		require.Equal(t, 99, *b)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 99, c.Value())
}

func TestOpenRAfterOpenRWSeesPendingValue(t *testing.T) {
	g := NewGroup()
	c := NewCell(1)

	_, err := Atomically(g, func(tx *Tx) (struct{}, error) {
		v, err := c.OpenRW(tx)
		require.NoError(t, err)
		*v = 7
		read, err := c.OpenR(tx)
		require.NoError(t, err)
		require.Equal(t, 7, read)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, c.Value())
}

func TestNestedReopenFoldsBackOnNestedCommit(t *testing.T) {
	g := NewGroup()
	c := NewCell(1)

	_, err := Atomically(g, func(tx *Tx) (struct{}, error) {
		outer, err := c.OpenRW(tx)
		require.NoError(t, err)
		*outer = 2

		_, err = Nested(tx, func(ntx *Tx) (struct{}, error) {
			inner, err := c.OpenRW(ntx)
			require.NoError(t, err)
			require.Equal(t, 2, *inner)
			*inner = 3
			return struct{}{}, nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, *outer)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, c.Value())
}

func TestSnapshotReadsSrcAtCommitTimeNotEnqueueTime(t *testing.T) {
	g := NewGroup()
	src := NewCell(1)
	dst := NewCell(0)

	_, err := Atomically(g, func(tx *Tx) (struct{}, error) {
		s, err := src.OpenRW(tx)
		require.NoError(t, err)

		d, err := dst.OpenRW(tx)
		require.NoError(t, err)
		Snapshot(tx, d, s)

		// mutate src after enqueuing the snapshot: the copy must reflect
		// this later write, not src's value at the moment Snapshot was
		// called.
		*s = 42
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, dst.Value())
}

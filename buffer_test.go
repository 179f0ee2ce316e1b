package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferPositionAndRelease(t *testing.T) {
	b := newBuffer(0)
	cb := newCellBase()

	b.pushRead(readRecord{cell: &cb, slot: 0})
	mark := b.position()
	b.pushRead(readRecord{cell: &cb, slot: 1})
	b.pushWrite(&writeEntry{cell: &cb})

	require.Len(t, b.reads, 2)
	require.Len(t, b.writes, 1)

	b.release(mark)
	require.Len(t, b.reads, 1)
	require.Len(t, b.writes, 0)
}

func TestBufferFullWithCapacity(t *testing.T) {
	b := newBuffer(2)
	cb := newCellBase()

	require.False(t, b.full())
	b.pushRead(readRecord{cell: &cb, slot: 0})
	require.False(t, b.full())
	b.pushWrite(&writeEntry{cell: &cb})
	require.True(t, b.full())
}

func TestBufferUnboundedNeverFull(t *testing.T) {
	b := newBuffer(0)
	cb := newCellBase()
	for i := 0; i < 1000; i++ {
		b.pushRead(readRecord{cell: &cb, slot: 0})
	}
	require.False(t, b.full())
}

func TestBufferReadsSince(t *testing.T) {
	b := newBuffer(0)
	cb := newCellBase()
	b.pushRead(readRecord{cell: &cb, slot: 0})
	mark := b.position()
	b.pushRead(readRecord{cell: &cb, slot: 1})

	var seen []uint8
	b.readsSince(mark, func(r readRecord) { seen = append(seen, r.slot) })
	require.Equal(t, []uint8{1}, seen)
}

package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		version uint64
		slot    uint8
	}{
		{0, 0},
		{0, 1},
		{1, 0},
		{42, 1},
		{1 << 40, 0},
	}
	for _, c := range cases {
		hdr := packHeader(c.version, c.slot)
		require.Equal(t, c.version, headerVersion(hdr))
		require.Equal(t, c.slot, activeOffset(hdr))
		require.Equal(t, 1-c.slot, inactiveOffset(hdr))
	}
}

func TestFlippedHeaderTogglesSlotAndVersion(t *testing.T) {
	hdr := packHeader(5, 0)
	next := flippedHeader(hdr, 6)
	require.Equal(t, uint64(6), headerVersion(next))
	require.Equal(t, uint8(1), activeOffset(next))

	again := flippedHeader(next, 7)
	require.Equal(t, uint64(7), headerVersion(again))
	require.Equal(t, uint8(0), activeOffset(again))
}

func TestValidAt(t *testing.T) {
	hdr := packHeader(10, 0)
	require.True(t, validAt(hdr, 10))
	require.True(t, validAt(hdr, 11))
	require.False(t, validAt(hdr, 9))
}

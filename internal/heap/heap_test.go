package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateZeroReturnsNull(t *testing.T) {
	h := New()
	require.Equal(t, Null, h.Allocate(0))
}

func TestFreeNullIsNoop(t *testing.T) {
	h := New()
	require.NotPanics(t, func() { h.Free(Null) })
}

func TestAllocateFreeConservesFreeSpace(t *testing.T) {
	h := New()
	freeBefore, _ := h.Stats()

	p := h.Allocate(1024)
	require.NotEqual(t, Null, p)
	h.Free(p)

	freeAfter, allocAfter := h.Stats()
	require.Equal(t, freeBefore, freeAfter)
	require.Zero(t, allocAfter)
	require.Equal(t, 1, h.FreeRegionCount())
}

func TestFreeIgnoresInteriorPointer(t *testing.T) {
	h := New()
	p := h.Allocate(100)
	_, allocBefore := h.Stats()

	h.Free(p + 10) // interior pointer: documented no-op

	_, allocAfter := h.Stats()
	require.Equal(t, allocBefore, allocAfter)
}

func TestAllocateReturnsDistinctRanges(t *testing.T) {
	h := New()
	a := h.Allocate(64)
	b := h.Allocate(64)
	require.NotEqual(t, a, b)
	require.True(t, a+64 <= b || b+64 <= a)
}

func TestAllocateExhaustsStorage(t *testing.T) {
	h := New()
	p := h.Allocate(StorageBytes) // whole pool minus the 1-byte null guard isn't quite StorageBytes
	require.Equal(t, Null, p, "allocation larger than the usable span must fail")
}

func TestCoalescingReclaimsContiguousSpace(t *testing.T) {
	h := New()
	a := h.Allocate(1000)
	b := h.Allocate(1000)
	c := h.Allocate(1000)
	h.Free(a)
	h.Free(b)
	h.Free(c)

	require.Equal(t, 1, h.FreeRegionCount())

	big := h.Allocate(2500)
	require.NotEqual(t, Null, big)
}

func TestViewZeroedAfterFree(t *testing.T) {
	h := New()
	p := h.Allocate(8)
	view := h.View(p, 8)
	copy(view, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	h.Free(p)
	after := h.View(p, 8)
	for _, b := range after {
		require.Zero(t, b)
	}
}

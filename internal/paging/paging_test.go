package paging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressSpaceIsolation(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(1, 0)
	m.CreateAddressSpace(2, 0)

	p1, _, ok := m.Translate(1, UserProgramVirtual)
	require.True(t, ok)
	p2, _, ok := m.Translate(2, UserProgramVirtual)
	require.True(t, ok)
	require.NotEqual(t, p1, p2, "distinct processes must have distinct physical backing for the same virtual address")
}

func TestLoadRejectsUnknownPid(t *testing.T) {
	m := NewManager()
	require.Error(t, m.Load(99))
}

func TestLoadSwitchesCurrent(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(1, 0)
	m.CreateAddressSpace(2, 0)
	require.NoError(t, m.Load(1))
	require.Equal(t, int32(1), m.Current())
	require.NoError(t, m.Load(2))
	require.Equal(t, int32(2), m.Current())
}

func TestVidmapMapsAtVidmapVirtual(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(1, 0)
	require.NoError(t, m.Vidmap(1, 0xB8000))

	phys, priv, ok := m.Translate(1, VidmapVirtual)
	require.True(t, ok)
	require.Equal(t, uint32(0xB8000), phys)
	require.Equal(t, UserPrivilege, priv)
}

func TestRemapVidmapChangesTarget(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(1, 0)
	require.NoError(t, m.Vidmap(1, 0xB8000))
	require.NoError(t, m.Vidmap(1, 0xC00000)) // re-route to a backing page

	phys, _, ok := m.Translate(1, VidmapVirtual)
	require.True(t, ok)
	require.Equal(t, uint32(0xC00000), phys)
}

func TestUnmappedVirtualAddressMissesTranslation(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(1, 0)
	_, _, ok := m.Translate(1, 0x100) // inside the identity-mapped low 4 MiB
	require.True(t, ok, "low memory is identity mapped per spec.md step 1")

	_, _, ok = m.Translate(1, 500*MiB) // nothing maps here
	require.False(t, ok)
}

func TestPidZeroHasNoUserProgramMapping(t *testing.T) {
	m := NewManager()
	m.CreateAddressSpace(0, 0)
	_, _, ok := m.Translate(0, UserProgramVirtual)
	require.False(t, ok, "pid 0 is the kernel process and never gets a user program slot")
}

// Package paging implements the per-process page directory and page
// table bookkeeping described in spec.md §4.2 (component C2). There is
// no real MMU underneath a hosted Go process, so this is a software
// model of the same structure the original paging.c builds: one
// directory of 1024 entries per pid, a small fixed pool of 4 KiB page
// tables per pid (three, mirroring page_data_t's pt[3][1024] in
// original_source/student-distrib/paging.h), and explicit Load/Map
// operations that other packages call exactly where the real kernel
// would touch CR3 and the PDE/PTE bit fields.
package paging

import (
	"fmt"
	"sync"
)

const (
	PageSize4K = 4096
	PageSize4M = 4 * 1024 * 1024
	MiB        = 1024 * 1024

	// KernelImageBase is where the kernel's own 4 MiB image sits,
	// identity-mapped per spec.md §4.2 step 2.
	KernelImageBase = 4 * MiB
	// ProcessSlotBase is where pid>0's 4 MiB physical backing span
	// starts: 0x848000 + 4 MiB * (pid - 1) per spec.md §3.
	ProcessSlotBase = 0x848000
	// HeapBackingBase is the virtual/physical identity base of the
	// kernel heap's backing span, per spec.md §4.2 step 3.
	HeapBackingBase = 192 * MiB
	// UserProgramVirtual is where a process's 4 MiB image slot is
	// mapped into user space, per spec.md §3.
	UserProgramVirtual = 128 * MiB
	// VidmapVirtual is where vidmap maps hardware text memory, per
	// spec.md §4.2/§4.5.
	VidmapVirtual = 256 * MiB

	// NumPageTables mirrors page_data_t's pt[3][1024]: one 4 KiB
	// table pool per address space, slot 1 reserved for vidmap.
	NumPageTables   = 3
	VidmapTableSlot = 1
)

type Privilege uint8

const (
	KernelPrivilege Privilege = 0
	UserPrivilege   Privilege = 3
)

type fourKEntry struct {
	physical uint32
	present  bool
	priv     Privilege
}

// dirEntry is one page-directory slot: either a 4 MiB page mapped
// directly, or a pointer to one of the address space's page tables.
type dirEntry struct {
	present   bool
	is4M      bool
	physical  uint32 // valid when is4M
	priv      Privilege
	tableSlot int8 // valid when !is4M; index into AddressSpace.tables, -1 if unset
}

// AddressSpace is one pid's page directory plus its small pool of
// page tables.
type AddressSpace struct {
	pid    int32
	dir    [1024]dirEntry
	tables [NumPageTables][1024]fourKEntry
}

// Manager owns every live address space and tracks which one is
// "loaded" — the software stand-in for CR3.
type Manager struct {
	mu      sync.Mutex
	spaces  map[int32]*AddressSpace
	current int32
}

func NewManager() *Manager {
	return &Manager{spaces: map[int32]*AddressSpace{}, current: -1}
}

// CreateAddressSpace builds the boot-time mappings spec.md §4.2
// prescribes for pid: the low 4 MiB identity-mapped 4K at kernel
// privilege, the kernel's own 4 MiB image, the heap's backing span,
// and — for pid > 0 — the process's 4 MiB physical slot mapped both
// for kernel bookkeeping and into user space at 128 MiB.
func (m *Manager) CreateAddressSpace(pid int32, heapBackingPages uint32) *AddressSpace {
	m.mu.Lock()
	defer m.mu.Unlock()

	as := &AddressSpace{pid: pid}
	for i := range as.tables {
		for j := range as.tables[i] {
			as.tables[i][j] = fourKEntry{}
		}
	}
	for i := range as.dir {
		as.dir[i].tableSlot = -1
	}

	// Step 1: identity-map the first 4 MiB as 4 KiB pages, kernel
	// privilege, using table slot 0.
	as.dir[0] = dirEntry{present: true, is4M: false, priv: KernelPrivilege, tableSlot: 0}
	for page := uint32(0); page < PageSize4M/PageSize4K; page++ {
		as.tables[0][page] = fourKEntry{physical: page * PageSize4K, present: true, priv: KernelPrivilege}
	}

	// Step 2: the kernel image, [4MiB, 8MiB), as one 4 MiB page.
	as.dir[KernelImageBase/PageSize4M] = dirEntry{present: true, is4M: true, physical: KernelImageBase, priv: KernelPrivilege}

	// Step 3: the heap's backing span, identity-mapped as successive
	// 4 MiB kernel pages.
	for i := uint32(0); i < heapBackingPages; i++ {
		phys := HeapBackingBase + i*PageSize4M
		as.dir[phys/PageSize4M] = dirEntry{present: true, is4M: true, physical: phys, priv: KernelPrivilege}
	}

	// Step 4: pid>0's own 4 MiB slot, identity for bookkeeping and at
	// 128 MiB for user code.
	if pid > 0 {
		phys := uint32(ProcessSlotBase + PageSize4M*uint32(pid-1))
		as.dir[phys/PageSize4M] = dirEntry{present: true, is4M: true, physical: phys, priv: KernelPrivilege}
		as.dir[UserProgramVirtual/PageSize4M] = dirEntry{present: true, is4M: true, physical: phys, priv: UserPrivilege}
	}

	m.spaces[pid] = as
	return as
}

// Load is the software model of writing the page-directory base into
// the MMU's base register — it "flushes the TLB" in the sense that
// every subsequent Translate call uses the newly loaded pid.
func (m *Manager) Load(pid int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[pid]; !ok {
		return fmt.Errorf("paging: no address space for pid %d", pid)
	}
	m.current = pid
	return nil
}

func (m *Manager) Current() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Map4KB sets the page-directory entry at virtual/4MiB to point at
// tableSlot of pid, and the PTE at (virtual mod 4MiB)/4KiB to
// (physical, flags) — spec.md §4.2.
func (m *Manager) Map4KB(physical, virtual uint32, pid int32, priv Privilege, tableSlot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.spaces[pid]
	if !ok {
		return fmt.Errorf("paging: no address space for pid %d", pid)
	}
	if tableSlot < 0 || tableSlot >= NumPageTables {
		return fmt.Errorf("paging: table slot %d out of range", tableSlot)
	}
	dirIdx := virtual / PageSize4M
	as.dir[dirIdx] = dirEntry{present: true, is4M: false, priv: priv, tableSlot: int8(tableSlot)}
	pteIdx := (virtual % PageSize4M) / PageSize4K
	as.tables[tableSlot][pteIdx] = fourKEntry{physical: physical, present: true, priv: priv}
	return nil
}

// Vidmap maps hwVideoPhysical at VidmapVirtual for pid, using
// VidmapTableSlot — spec.md §4.2 names this slot's sole purpose.
func (m *Manager) Vidmap(pid int32, hwVideoPhysical uint32) error {
	return m.Map4KB(hwVideoPhysical, VidmapVirtual, pid, UserPrivilege, VidmapTableSlot)
}

// Translate resolves a virtual address in pid's address space,
// reporting the backing physical address, the mapping's privilege,
// and whether a mapping exists at all. Used by tests asserting
// address-space isolation (spec.md §8) and vidmap targets.
func (m *Manager) Translate(pid int32, virtual uint32) (physical uint32, priv Privilege, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, present := m.spaces[pid]
	if !present {
		return 0, 0, false
	}
	dirIdx := virtual / PageSize4M
	de := as.dir[dirIdx]
	if !de.present {
		return 0, 0, false
	}
	if de.is4M {
		offset := virtual % PageSize4M
		return de.physical + offset, de.priv, true
	}
	pte := as.tables[de.tableSlot][(virtual%PageSize4M)/PageSize4K]
	if !pte.present {
		return 0, 0, false
	}
	return pte.physical + virtual%PageSize4K, pte.priv, true
}

// Destroy drops pid's address space, used on halt once the PCB slot
// is reusable.
func (m *Manager) Destroy(pid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, pid)
}

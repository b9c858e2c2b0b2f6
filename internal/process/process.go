// Package process implements the fixed process table (spec.md §4.3,
// component C3): one PCB per pid, with the exact field set and
// invariants spec.md §3 describes. Cyclic parent/child references are
// deliberately avoided (spec.md §9 design note): Parent is a plain
// *Process lookup handle, not an owning edge, and the scheduler's task
// node is stashed behind an opaque SchedNode so this package never
// needs to import internal/sched.
package process

import (
	"fmt"
	"sync"

	"github.com/aerohand/xios/internal/vfs"
)

const (
	MaxProcesses = 100
	MaxFiles     = vfs.MaxFiles
	MaxProgram   = 32
	MaxArgs      = 100

	// kernelStackBase/kernelStackSize mirror "8 MiB - 0x2000*(p+1)" from spec.md §4.3:
	// a deterministic per-pid kernel stack address, kept here purely as
	// data (there is no real kernel stack below it in this model).
	kernelStackBase = 8 * 1024 * 1024
	kernelStackSize = 0x2000
)

// Registers is the saved general-purpose register frame spec.md §3
// calls out on every PCB.
type Registers struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	EIP, EFLAGS        uint32
}

// Process is one PCB. Every field here is named directly from
// spec.md §3's data model.
type Process struct {
	PID            int32
	ParentPID      int32
	Parent         *Process // weak lookup handle; nil only for the kernel process
	UserStackTop   uint32
	KernelStackTop uint32
	PageStart      uint32 // physical address backing this pid's 4 MiB image

	OpenFiles vfs.Table

	Program string
	Args    string
	// Image is the program's loaded bytes, standing in for "the user
	// page" the original loader copies the ELF image into (spec.md
	// §4.5's setup_process). EntryPoint is the validated ELF entry
	// address read from the image header.
	Image      []byte
	EntryPoint uint32

	Registers Registers
	// ReturnLinkage is the continuation used to resume this process
	// across an execute/halt pair: spec.md §9 asks for "an explicit
	// continuation" in place of a raw return address. It is invoked
	// with the child's halt status when that child terminates.
	ReturnLinkage func(status int32)

	Level      int32 // 1 for top-level shells, +1 per nested execute
	Terminal   any   // *terminal.Terminal; opaque to avoid an import cycle
	VidmapFlag bool

	schedNode any // opaque *sched.Task, set via SetSchedNode
}

// SetSchedNode/SchedNode let internal/sched attach and retrieve its
// task node without this package depending on sched.
func (p *Process) SetSchedNode(n any) { p.schedNode = n }
func (p *Process) SchedNode() any     { return p.schedNode }

// IsTopLevelShell matches spec.md §3's invariant: a process whose
// parent is the kernel process (pid 0) is a top-level shell.
func (p *Process) IsTopLevelShell() bool {
	return p.Parent != nil && p.Parent.PID == 0
}

// Table is the fixed array of up to MaxProcesses PCBs, indexed by
// pid.
type Table struct {
	mu    sync.Mutex
	slots [MaxProcesses]*Process
}

func NewTable() *Table { return &Table{} }

// Kernel returns (creating if absent) the pid-0 kernel process, which
// spec.md §3 says is never scheduled to user code.
func (t *Table) Kernel() *Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots[0] == nil {
		t.slots[0] = &Process{PID: 0}
	}
	return t.slots[0]
}

// nextPID scans the currently live (non-nil) slots for the highest
// pid in use and returns max+1, per spec.md §4.3: "Picking a new pid
// scans the run queue for the maximum present pid and adds 1; fails
// when that exceeds the limit." The process table's own slot
// occupancy stands in for the run queue scan here, since every live
// process has exactly one PCB slot and exactly one run-queue task
// (spec.md §3 invariant) — this means a freed high pid is reused only
// once nothing with a higher pid is still live, matching the
// original's behavior exactly rather than a simple lowest-free-slot
// scheme.
func (t *Table) nextPID() (int32, error) {
	max := int32(0)
	for pid, p := range t.slots {
		if pid == 0 {
			continue
		}
		if p != nil && int32(pid) > max {
			max = int32(pid)
		}
	}
	next := max + 1
	if next >= MaxProcesses {
		return 0, fmt.Errorf("process: no pid slots available (max %d)", MaxProcesses)
	}
	return next, nil
}

// New allocates a PCB slot for a fresh process, parented to parent
// (which may be the kernel process for a top-level shell).
func (t *Table) New(parent *Process) (*Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid, err := t.nextPID()
	if err != nil {
		return nil, err
	}
	level := int32(1)
	if parent != nil && parent.PID != 0 {
		level = parent.Level + 1
	}
	p := &Process{
		PID:            pid,
		ParentPID:      parent.pidOrZero(),
		Parent:         parent,
		Level:          level,
		KernelStackTop: kernelStackBase - kernelStackSize*uint32(pid+1),
	}
	t.slots[pid] = p
	return p, nil
}

func (p *Process) pidOrZero() int32 {
	if p == nil {
		return 0
	}
	return p.PID
}

// Close frees pid's slot, making it reusable, per spec.md §3's
// lifecycle note.
func (t *Table) Close(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid > 0 && int(pid) < MaxProcesses {
		t.slots[pid] = nil
	}
}

func (t *Table) Get(pid int32) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid < 0 || int(pid) >= MaxProcesses {
		return nil, false
	}
	p := t.slots[pid]
	return p, p != nil
}

// Live returns every currently occupied PCB, in pid order, used for
// diagnostics (`xioshost ps`) and tests.
func (t *Table) Live() []*Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Process
	for _, p := range t.slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

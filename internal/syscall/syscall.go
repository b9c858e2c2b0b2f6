// Package syscall implements the system-call dispatcher (spec.md
// §4.5, component C5): the twelve numbered calls, execute/halt
// lifecycle, and the filename-resolution dispatch C6 depends on.
// Grounded on original_source/student-distrib/syscall.c's dispatch
// table and on the teacher's program_executor.go for the
// mutex-guarded register-style "device" idiom this package's
// Dispatcher follows.
package syscall

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aerohand/xios/internal/elf"
	"github.com/aerohand/xios/internal/fsimage"
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/paging"
	"github.com/aerohand/xios/internal/process"
	"github.com/aerohand/xios/internal/sched"
	"github.com/aerohand/xios/internal/terminal"
	"github.com/aerohand/xios/internal/vfs"
)

// Call numbers, per spec.md §4.5's table.
const (
	CallHalt = iota + 1
	CallExecute
	CallRead
	CallWrite
	CallOpen
	CallClose
	CallGetArgs
	CallVidmap
	CallSetHandler
	CallSigreturn
	CallShutdown
	CallSoundCtrl
)

// hwVideoPhysical is the flat VGA text surface's physical address,
// per spec.md §6.
const hwVideoPhysical = 0xB8000

// ShutdownRequested is returned by Shutdown (call 11), whose reason
// also reaches the kernel's run loop through ShutdownSignal; it carries the SUPPLEMENTED reason string
// spec.md's expansion adds (the original just halts the machine with
// no diagnostic).
type ShutdownRequested struct {
	Reason string
}

func (s *ShutdownRequested) Error() string { return s.Reason }

// Dispatcher wires every C1-C9 component a syscall touches. It holds
// no goroutine of its own: each call's method runs synchronously on
// whichever goroutine invokes it (internal/interrupt's 0x80 gate, or
// the kernel's boot path for SpawnShell).
type Dispatcher struct {
	mu sync.Mutex

	procs     *process.Table
	queue     *sched.Queue
	scheduler *sched.Scheduler
	paging    *paging.Manager
	fs        *fsimage.Image
	terms     *terminal.Manager
	rtc       *vfs.RTCOps
	sound     hal.SoundCard
	formatter hal.Formatter

	// termOwner tracks which pid currently owns each terminal, -1 if
	// free, used by execute's "reserve a free terminal" step.
	termOwner [terminal.NumTerminals]int32

	// shutdown carries call 11's reason to internal/kernel's run loop.
	// Buffered by one: "does not return" means the caller never gets
	// its accumulator back, so there is nothing for a second shutdown
	// to race against.
	shutdown chan string
}

func NewDispatcher(procs *process.Table, queue *sched.Queue, scheduler *sched.Scheduler, pg *paging.Manager, fs *fsimage.Image, terms *terminal.Manager, rtc *vfs.RTCOps, sound hal.SoundCard, formatter hal.Formatter) *Dispatcher {
	d := &Dispatcher{procs: procs, queue: queue, scheduler: scheduler, paging: pg, fs: fs, terms: terms, rtc: rtc, sound: sound, formatter: formatter, shutdown: make(chan string, 1)}
	for i := range d.termOwner {
		d.termOwner[i] = -1
	}
	return d
}

// ShutdownSignal is the buffered channel Shutdown sends its reason on
// (it is never closed); internal/kernel's run loop selects on it to
// learn when call 11 fired and why.
func (d *Dispatcher) ShutdownSignal() <-chan string {
	return d.shutdown
}

// Resolve implements vfs.Resolver for C6's filename dispatch, per
// spec.md §4.6.
func (d *Dispatcher) Resolve(name string) (vfs.Operations, vfs.Kind, any, uint32, bool) {
	switch name {
	case "/dev/stdin", "/dev/stdout":
		return nil, vfs.KindTerminal, nil, 0, false // handled specially in Open below
	case "/dev/rtc":
		return d.rtc, vfs.KindRTC, nil, 0, true
	}
	dentry, err := d.fs.ReadDentryByName(name)
	if err != nil {
		return nil, 0, nil, 0, false
	}
	switch dentry.Type {
	case fsimage.TypeDirectory:
		return vfs.DirectoryOps{Image: d.fs}, vfs.KindDirectory, nil, dentry.Inode, true
	case fsimage.TypeFile:
		return vfs.FileOps{Image: d.fs}, vfs.KindRegular, nil, dentry.Inode, true
	case fsimage.TypeRTC:
		return d.rtc, vfs.KindRTC, nil, 0, true
	}
	return nil, 0, nil, 0, false
}

// reserveTerminal picks a free terminal for a top-level shell with no
// inherited terminal, per spec.md §4.5's setup_process note.
func (d *Dispatcher) reserveTerminal(pid int32) *terminal.Terminal {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, owner := range d.termOwner {
		if owner == -1 {
			d.termOwner[i] = pid
			return d.terms.Terminal(i)
		}
	}
	return nil
}

func (d *Dispatcher) releaseTerminal(t *terminal.Terminal) {
	if t == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.termOwner {
		if d.terms.Terminal(i) == t {
			d.termOwner[i] = -1
			return
		}
	}
}

// loadAndSpawnChild implements setup_process's load steps common to both
// an interactive execute and the boot loop's initial shell spawns:
// resolve the program, validate its ELF header, allocate a PCB, build
// its address space, and give it a terminal (inherited from the caller,
// or freshly reserved for a top-level shell).
func (d *Dispatcher) loadAndSpawnChild(caller *process.Process, command string) (*process.Process, error) {
	name, args, err := parseCommand(command)
	if err != nil {
		return nil, err
	}

	dentry, err := d.fs.ReadDentryByName(name)
	if err != nil || dentry.Type != fsimage.TypeFile {
		return nil, fmt.Errorf("syscall: %q is not an executable file", name)
	}
	fileLen, err := d.fs.FileLength(dentry.Inode)
	if err != nil {
		return nil, err
	}
	image := make([]byte, fileLen)
	if _, err := d.fs.ReadData(dentry.Inode, 0, image); err != nil {
		return nil, err
	}
	header, err := elf.Validate(image)
	if err != nil {
		return nil, err
	}

	child, err := d.procs.New(caller)
	if err != nil {
		return nil, err
	}
	child.Program = name
	child.Args = args
	child.Image = image
	child.EntryPoint = header.Entry

	d.paging.CreateAddressSpace(child.PID, 0)

	var term *terminal.Terminal
	if t, ok := caller.Terminal.(*terminal.Terminal); ok && t != nil {
		term = t
	} else {
		term = d.reserveTerminal(child.PID)
		if term == nil {
			d.procs.Close(child.PID)
			d.paging.Destroy(child.PID)
			return nil, fmt.Errorf("syscall: no free terminal for %q", name)
		}
	}
	child.Terminal = term
	term.ProgramName = name
	child.OpenFiles.Init(d.terms.Ops(), term)

	task := &sched.Task{PID: child.PID, Process: child, State: sched.Active}
	child.SetSchedNode(task)
	d.queue.Add(task)

	return child, nil
}

// Execute implements spec.md §4.5's call 2 and the "execute semantics"
// paragraph: parse and load the child, idle the caller, add the child
// to the run queue, and block the caller's continuation until the
// child halts.
func (d *Dispatcher) Execute(callerPID int32, command string) int32 {
	caller, ok := d.procs.Get(callerPID)
	if !ok {
		return -1
	}

	if _, err := d.loadAndSpawnChild(caller, command); err != nil {
		return -1
	}

	d.queue.SetState(callerPID, sched.Idle)

	// "Idle the caller's task... jump to the saved linkage in the
	// parent's PCB" becomes a plain channel receive here: the goroutine
	// that issued the call blocks until the child's halt fires
	// ReturnLinkage, standing in for the original's task_switch-on-halt.
	result := make(chan int32, 1)
	caller.ReturnLinkage = func(status int32) { result <- status }

	status := <-result
	d.queue.SetState(callerPID, sched.Active)
	return status
}

// SpawnShell implements the boot loop's "launch the N top-level shells"
// step (spec.md §2). Unlike Execute, the kernel process isn't a
// scheduled task waiting on a single child's result: boot spawns all N
// shells from the same pid-0 PCB before it ever starts scheduling, so
// there is no caller continuation to block or to overwrite per spawn.
// A top-level shell halting is handled the same way any halt is:
// Dispatcher.Halt still runs fd/address-space/terminal teardown, it
// simply has no parent ReturnLinkage to resume.
func (d *Dispatcher) SpawnShell(command string) (int32, error) {
	kernel := d.procs.Kernel()
	child, err := d.loadAndSpawnChild(kernel, command)
	if err != nil {
		return 0, err
	}
	return child.PID, nil
}

// parseCommand implements setup_process's parsing rule: the leading
// word (<=32 bytes) is the program name, the remainder (after skipping
// one space) is the argument string (<=100 bytes).
func parseCommand(command string) (name, args string, err error) {
	command = strings.TrimRight(command, "\x00")
	sp := strings.IndexByte(command, ' ')
	if sp < 0 {
		name = command
	} else {
		name = command[:sp]
		if sp+1 < len(command) {
			args = command[sp+1:]
		}
	}
	if len(name) == 0 || len(name) > process.MaxProgram {
		return "", "", fmt.Errorf("syscall: program name invalid")
	}
	if len(args) > process.MaxArgs {
		return "", "", fmt.Errorf("syscall: argument string too long")
	}
	return name, args, nil
}

// Halt implements spec.md §4.5's call 1 and the "execute semantics"
// teardown: close every fd, free the task and run-queue entry, mark
// the PCB slot reusable, and deliver status through the parent's
// saved ReturnLinkage.
func (d *Dispatcher) Halt(pid int32, status int32) {
	p, ok := d.procs.Get(pid)
	if !ok {
		return
	}
	term, _ := p.Terminal.(*terminal.Terminal)

	p.OpenFiles.CloseAll()
	d.queue.Remove(pid)
	d.paging.Destroy(pid)
	d.releaseTerminal(term)

	// SUPPLEMENTED: the status bar shows whichever program now owns
	// this terminal's foreground, per task.c's set_status_bar. Once
	// the halting task's parent resumes, that is the parent's own
	// Program name, or "shell" for a resumed top-level shell.
	if term != nil {
		parentName := "shell"
		if p.Parent != nil && p.Parent.Program != "" {
			parentName = p.Parent.Program
		}
		term.ProgramName = parentName
	}

	d.procs.Close(pid)

	if p.Parent != nil && p.Parent.ReturnLinkage != nil {
		p.Parent.ReturnLinkage(status)
	}
}

func (d *Dispatcher) Read(pid int32, fd int, buf []byte) int32 {
	p, ok := d.procs.Get(pid)
	if !ok {
		return -1
	}
	n, err := p.OpenFiles.Read(fd, buf)
	if err != nil {
		return -1
	}
	return int32(n)
}

func (d *Dispatcher) Write(pid int32, fd int, buf []byte) int32 {
	p, ok := d.procs.Get(pid)
	if !ok {
		return -1
	}
	_, err := p.OpenFiles.Write(fd, buf)
	if err != nil {
		return -1
	}
	return 0
}

func (d *Dispatcher) Open(pid int32, name string) int32 {
	p, ok := d.procs.Get(pid)
	if !ok {
		return -1
	}
	switch name {
	case "/dev/stdin":
		return 0
	case "/dev/stdout":
		return 1
	}
	fd, err := p.OpenFiles.Open(name, d)
	if err != nil {
		return -1
	}
	return int32(fd)
}

func (d *Dispatcher) Close(pid int32, fd int) int32 {
	p, ok := d.procs.Get(pid)
	if !ok {
		return -1
	}
	if err := p.OpenFiles.Close(fd); err != nil {
		return -1
	}
	return 0
}

func (d *Dispatcher) GetArgs(pid int32, buf []byte) int32 {
	p, ok := d.procs.Get(pid)
	if !ok || p.Args == "" {
		return -1
	}
	n := copy(buf, p.Args)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return 0
}

// Vidmap implements spec.md §4.5's vidmap semantics: the out-pointer
// must lie in the user program page; on success map real video memory
// at 256 MiB with user privilege and record the flag for focus
// switches.
func (d *Dispatcher) Vidmap(pid int32, outPointer uint32) int32 {
	p, ok := d.procs.Get(pid)
	if !ok {
		return -1
	}
	if outPointer < paging.UserProgramVirtual || outPointer >= paging.UserProgramVirtual+paging.PageSize4M {
		return -1
	}
	if err := d.paging.Vidmap(pid, hwVideoPhysical); err != nil {
		return -1
	}
	p.VidmapFlag = true
	if t, ok := p.Terminal.(*terminal.Terminal); ok && t != nil {
		t.Vidmapped = true
	}
	return 0
}

// SetHandler and Sigreturn are permanently unimplemented, per spec.md
// §4.5's table.
func (d *Dispatcher) SetHandler(pid int32, signum int32, handler uint32) int32 { return -1 }
func (d *Dispatcher) Sigreturn(pid int32) int32                                { return -1 }

// Shutdown implements call 11. The original just halts the machine;
// the SUPPLEMENTED reason string gives cmd/xioshost something to print
// on the way down.
func (d *Dispatcher) Shutdown(reason string) *ShutdownRequested {
	if reason == "" {
		reason = "shutdown requested"
	}
	select {
	case d.shutdown <- reason:
	default:
	}
	return &ShutdownRequested{Reason: reason}
}

func (d *Dispatcher) SoundCtrl(function uint32, filename string) int32 {
	if err := d.sound.Control(function, filename); err != nil {
		return -1
	}
	return 0
}

// Format exposes the wired Formatter for callers (shells, diagnostics)
// that need printf/itoa without reaching for fmt directly, per
// spec.md §1's "formatting utilities" non-goal.
func (d *Dispatcher) Format(format string, args ...any) string {
	return d.formatter.Sprintf(format, args...)
}

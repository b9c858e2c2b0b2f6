// Package interrupt implements the IDT and per-source trampolines
// described in spec.md §4.9 (component C9): exception vectors 0-31,
// the six hardware ISRs (PIT, keyboard, SB16, floppy, RTC, mouse) at
// DPL 0, and the 0x80 syscall gate at DPL 3.
//
// A hosted Go process has no real IDT, so Table stands in for one:
// each vector maps to a Go function, and "raising" a vector is a
// direct call rather than a CPU trap. Every hardware raise still
// performs the spec's prescribed shape — do the work, then
// end-of-interrupt to the PIC — since that ordering is observable
// behavior (a handler that forgets EOI would wedge the real chip).
// Register save/restore and IRET have no analogue here: a task is a
// run-queue record, no goroutine is started per task and no program
// code is executed, so there is no register file for a handler to
// clobber.
package interrupt

import (
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/sched"
	"github.com/aerohand/xios/internal/syscall"
	"github.com/aerohand/xios/internal/terminal"
	"github.com/aerohand/xios/internal/vfs"
	"github.com/aerohand/xios/klog"
)

// Vector numbers, per spec.md §4.9's table.
const (
	VectorDivideError         = 0
	VectorDebug               = 1
	VectorNMI                 = 2
	VectorBreakpoint          = 3
	VectorOverflow            = 4
	VectorBoundRangeExceeded  = 5
	VectorInvalidOpcode       = 6
	VectorDeviceNotAvailable  = 7
	VectorDoubleFault         = 8
	VectorInvalidTSS          = 10
	VectorSegmentNotPresent   = 11
	VectorStackFault          = 12
	VectorGeneralProtection   = 13
	VectorPageFault           = 14
	VectorFPUError            = 16

	VectorPIT      = 0x20
	VectorKeyboard = 0x21
	VectorSB16     = 0x25
	VectorFloppy   = 0x26
	VectorRTC      = 0x28
	VectorMouse    = 0x2C

	VectorSyscall = 0x80
)

// irqLine maps a hardware vector to the PIC's IRQ line, for EndOfInterrupt.
var irqLine = map[int]int{
	VectorPIT:      0,
	VectorKeyboard: 1,
	VectorSB16:     5,
	VectorFloppy:   6,
	VectorRTC:      8,
	VectorMouse:    12,
}

// Table is the kernel's IDT stand-in, wired to every collaborator a
// trampoline needs to reach: the PIC for EOI, the scheduler for the
// timer tick, the terminal manager for keypresses and RTC reads, and
// the syscall dispatcher for the 0x80 gate.
type Table struct {
	pic        hal.InterruptController
	printer    hal.ExceptionPrinter
	dispatcher *syscall.Dispatcher
	scheduler  *sched.Scheduler
	terms      *terminal.Manager
	rtc        *vfs.RTCOps
	log        *klog.Logger

	haltOnException func(pid int32, status int32)
	currentPID      func() int32
}

func NewTable(pic hal.InterruptController, printer hal.ExceptionPrinter, dispatcher *syscall.Dispatcher, scheduler *sched.Scheduler, terms *terminal.Manager, rtc *vfs.RTCOps, haltOnException func(pid int32, status int32), currentPID func() int32) *Table {
	return &Table{
		pic:             pic,
		printer:         printer,
		dispatcher:      dispatcher,
		scheduler:       scheduler,
		terms:           terms,
		rtc:             rtc,
		log:             klog.Default("interrupt"),
		haltOnException: haltOnException,
		currentPID:      currentPID,
	}
}

// RaiseException implements slots 0-31: print a one-line reason and
// halt(-1) the currently running task, per spec.md §4.9 and §7's
// "unhandled exception" error path. There is no IRET back to the
// faulting task; halt unwinds straight to the parent's execute.
func (t *Table) RaiseException(vector int) {
	pid := t.currentPID()
	t.printer.PrintException(vector, pid)
	t.log.Warn("exception vector %#x in pid %d", vector, pid)
	t.haltOnException(pid, -1)
}

// raiseHardware runs the registered work for a hardware vector, then
// always acknowledges the PIC, matching "perform work, EOI, return"
// even when the handler itself does nothing (SB16/floppy, whose real
// drivers are out of scope per spec.md §1).
func (t *Table) raiseHardware(vector int, work func()) {
	if work != nil {
		work()
	}
	if irq, ok := irqLine[vector]; ok {
		t.pic.EndOfInterrupt(irq)
	}
}

// PITTick implements the 0x20 ISR: ask the scheduler for the next
// task. The actual "switch page directory, IRET to it" step collapses
// to bookkeeping in this model, where tasks are records that run no
// code, so PITTick's only externally visible effect is which task
// sched.Scheduler reports as current. internal/kernel's run loop
// discards the returned Result; terminal focus and the status bar do
// not depend on it.
func (t *Table) PITTick() sched.Result {
	var result sched.Result
	t.raiseHardware(VectorPIT, func() {
		result = t.scheduler.Schedule()
		if result.Switched {
			fromPID, toPID := int32(-1), int32(-1)
			if result.From != nil {
				fromPID = result.From.PID
			}
			if result.To != nil {
				toPID = result.To.PID
			}
			t.log.Trace("pit: switched pid %d -> pid %d", fromPID, toPID)
		}
	})
	return result
}

// Keyboard implements the 0x21 ISR: forward one decoded keypress into
// the terminal manager's key-handling state machine.
func (t *Table) Keyboard(ev terminal.KeyEvent) {
	t.raiseHardware(VectorKeyboard, func() {
		t.terms.HandleKey(ev)
	})
}

// RTCTick implements the 0x28 ISR: advance the RTC's tick counter and
// wake any /dev/rtc reader whose rate divides it.
func (t *Table) RTCTick() {
	t.raiseHardware(VectorRTC, func() {
		t.rtc.Tick()
	})
}

// Mouse implements the 0x2C ISR: forward a decoded PS/2 packet to a
// caller-supplied sink (internal/kernel wires this to whatever the
// focused screen driver does with pointer motion; spec.md scopes
// cursor rendering itself as host-display detail, not core kernel
// state).
func (t *Table) Mouse(ev hal.MouseEvent, sink func(hal.MouseEvent)) {
	t.raiseHardware(VectorMouse, func() {
		if sink != nil {
			sink(ev)
		}
	})
}

// SB16 implements the 0x25 ISR. The driver itself is an explicit
// Non-goal (spec.md §1); this trampoline exists so the IDT shape
// matches spec.md §4.9 exactly, and acknowledges the PIC like every
// other hardware vector.
func (t *Table) SB16() { t.raiseHardware(VectorSB16, nil) }

// Floppy implements the 0x26 ISR, for the same reason as SB16: the
// FDC/DMA protocol is out of scope, but the vector still exists and
// still must EOI.
func (t *Table) Floppy() { t.raiseHardware(VectorFloppy, nil) }

// SyscallArgs is the 0x80 gate's argument frame: spec.md §4.5's "call
// number in the primary accumulator, up to three arguments in the
// secondary registers" convention, expressed with Go-native argument
// types instead of raw register words since this model has no shared
// register file to decode pointers out of.
type SyscallArgs struct {
	Number int32

	Command string // Execute
	Status  int32  // Halt
	FD      int    // Read, Write, Close
	Buf     []byte // Read, Write, GetArgs
	Name    string // Open
	Out     uint32 // Vidmap

	SigNum  int32  // SetHandler
	Handler uint32 // SetHandler

	Reason        string // Shutdown
	SoundFunction uint32 // SoundCtrl
	SoundFile     string // SoundCtrl
}

// Syscall implements the 0x80 gate: dispatch by call number into the
// wired syscall.Dispatcher and return its result in the "primary
// accumulator" (the int32 return value), per spec.md §4.9/§4.5.
func (t *Table) Syscall(pid int32, args SyscallArgs) int32 {
	switch args.Number {
	case syscall.CallHalt:
		t.dispatcher.Halt(pid, args.Status)
		return 0
	case syscall.CallExecute:
		return t.dispatcher.Execute(pid, args.Command)
	case syscall.CallRead:
		return t.dispatcher.Read(pid, args.FD, args.Buf)
	case syscall.CallWrite:
		return t.dispatcher.Write(pid, args.FD, args.Buf)
	case syscall.CallOpen:
		return t.dispatcher.Open(pid, args.Name)
	case syscall.CallClose:
		return t.dispatcher.Close(pid, args.FD)
	case syscall.CallGetArgs:
		return t.dispatcher.GetArgs(pid, args.Buf)
	case syscall.CallVidmap:
		return t.dispatcher.Vidmap(pid, args.Out)
	case syscall.CallSetHandler:
		return t.dispatcher.SetHandler(pid, args.SigNum, args.Handler)
	case syscall.CallSigreturn:
		return t.dispatcher.Sigreturn(pid)
	case syscall.CallShutdown:
		// The gate itself can't "return" a *ShutdownRequested through
		// an int32 accumulator; Dispatcher.Shutdown instead queues the
		// reason on ShutdownSignal, which internal/kernel's run loop
		// selects on.
		t.dispatcher.Shutdown(args.Reason)
		return 0
	case syscall.CallSoundCtrl:
		return t.dispatcher.SoundCtrl(args.SoundFunction, args.SoundFile)
	default:
		return -1
	}
}

// Package kernel sequences the boot described in spec.md §2 and owns
// the steady-state run loop described in §4.9's "execution model":
// timer tick drives the scheduler, keypresses and RTC ticks drive
// their own ISRs, and a shutdown request stops the loop. It is the
// one package that imports every other internal/ package, the same
// role the teacher's main.go plays wiring its Bus32 core against
// swappable GUI/audio/video backends (machine_bus.go, audio_chip.go,
// video_chip.go) — here the "backends" are the hal interfaces plus a
// *screen.Driver, assembled by cmd/xioshost.
package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/aerohand/xios/internal/fsimage"
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/heap"
	"github.com/aerohand/xios/internal/interrupt"
	"github.com/aerohand/xios/internal/paging"
	"github.com/aerohand/xios/internal/process"
	"github.com/aerohand/xios/internal/sched"
	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/syscall"
	"github.com/aerohand/xios/internal/terminal"
	"github.com/aerohand/xios/internal/vfs"
	"github.com/aerohand/xios/klog"
)

// Deps bundles every hal collaborator and host-wired piece this
// kernel needs but does not construct itself, per spec.md §6's
// external-interface boundary.
type Deps struct {
	Floppy           hal.FloppyController
	PIC              hal.InterruptController
	PIT              hal.IntervalTimer
	Clock            hal.RealTimeClock
	Sound            hal.SoundCard
	Mouse            hal.PointingDevice
	ExceptionPrinter hal.ExceptionPrinter
	Formatter        hal.Formatter

	Screen          *screen.Driver
	Clipboard       terminal.ClipboardReader
	ExecutableNames func() []string
}

// Config is the boot-time policy spec.md leaves to "the bootloader":
// how many terminals to light up and which program each starts with a
// top-level shell running on it.
type Config struct {
	NumTerminals int
	Shells       []string
	TickHz       uint32
}

func (c Config) withDefaults() Config {
	if c.NumTerminals <= 0 || c.NumTerminals > terminal.NumTerminals {
		c.NumTerminals = 3
	}
	if len(c.Shells) == 0 {
		c.Shells = []string{"shell", "shell", "shell"}
	}
	if c.TickHz == 0 {
		c.TickHz = 100
	}
	return c
}

// Kernel holds every component C1-C9 wires together once Boot has
// run.
type Kernel struct {
	deps Deps
	cfg  Config
	log  *klog.Logger

	Heap       *heap.Heap
	Paging     *paging.Manager
	Procs      *process.Table
	Queue      *sched.Queue
	Scheduler  *sched.Scheduler
	FS         *fsimage.Image
	Terms      *terminal.Manager
	RTC        *vfs.RTCOps
	Dispatcher *syscall.Dispatcher
	Interrupts *interrupt.Table
}

// New prepares a Kernel. Boot must be called before Run.
func New(deps Deps, cfg Config) *Kernel {
	return &Kernel{deps: deps, cfg: cfg.withDefaults(), log: klog.Default("kernel")}
}

// Boot runs the boot sequence: C1 → C2 → terminals init (C7) → PIC
// (external) → RTC (external) → C3 → screen (C8) → floppy load of the
// filesystem image (external) → interrupts (C9) → spawn N shells (C3,
// C4, C7). The image is loaded before C9 because the syscall
// dispatcher the interrupt table wraps is built over the parsed image.
// The caller enables interrupts (starts Run) once Boot returns nil.
func (k *Kernel) Boot(ctx context.Context) error {
	k.log.Info("C1: kernel heap")
	k.Heap = heap.New()

	k.log.Info("C2: paging manager")
	k.Paging = paging.NewManager()

	k.log.Info("terminals init (C7)")
	k.Terms = terminal.NewManager(k.deps.Screen, k.deps.Clipboard, k.deps.ExecutableNames)

	k.log.Info("PIC ready (external)")
	k.log.Info("RTC ready (external)")
	k.RTC = vfs.NewRTCOps(k.deps.Clock)

	k.log.Info("C3: process table")
	k.Procs = process.NewTable()
	k.Procs.Kernel() // materializes pid 0

	k.Queue = sched.NewQueue()
	k.Scheduler = sched.NewScheduler(k.Queue)

	if k.deps.Screen == nil {
		return fmt.Errorf("kernel: C8 screen driver is required")
	}
	k.log.Info("C8: screen driver ready")

	k.log.Info("loading filesystem image")
	image, err := k.deps.Floppy.ReadImage(ctx)
	if err != nil {
		return fmt.Errorf("kernel: floppy read: %w", err)
	}
	k.FS, err = fsimage.Parse(image)
	if err != nil {
		return fmt.Errorf("kernel: filesystem image: %w", err)
	}

	k.Dispatcher = syscall.NewDispatcher(k.Procs, k.Queue, k.Scheduler, k.Paging, k.FS, k.Terms, k.RTC, k.deps.Sound, k.deps.Formatter)

	k.log.Info("C9: interrupt surface")
	k.Interrupts = interrupt.NewTable(k.deps.PIC, k.deps.ExceptionPrinter, k.Dispatcher, k.Scheduler, k.Terms, k.RTC, k.Dispatcher.Halt, k.currentPID)

	k.log.Info("spawning up to %d top-level shells across %d terminals", len(k.cfg.Shells), k.cfg.NumTerminals)
	for _, prog := range k.cfg.Shells {
		if int(k.pidCount()) >= k.cfg.NumTerminals {
			break
		}
		pid, err := k.Dispatcher.SpawnShell(prog)
		if err != nil {
			return fmt.Errorf("kernel: spawn shell %q: %w", prog, err)
		}
		k.log.Info("spawned shell pid=%d program=%q", pid, prog)
	}

	k.rebuildStatusBar()
	k.log.Info("boot complete; idling kernel task, interrupts enabled")
	return nil
}

func (k *Kernel) pidCount() int {
	n := 0
	for _, p := range k.Procs.Live() {
		if p.PID != 0 {
			n++
		}
	}
	return n
}

func (k *Kernel) currentPID() int32 {
	t := k.Scheduler.Current()
	if t == nil {
		return 0
	}
	return t.PID
}

// rebuildStatusBar implements the SUPPLEMENTED status-bar content:
// a "Start" segment plus one labelled segment per terminal showing
// its foreground program (or "shell"), with the focused terminal's
// segment inverted.
func (k *Kernel) rebuildStatusBar() {
	segments := make([]screen.StatusSegment, 0, k.cfg.NumTerminals+1)
	segments = append(segments, screen.StatusSegment{Label: "Start", TerminalIndex: -1})
	focused := k.Terms.Current()
	for i := 0; i < k.cfg.NumTerminals; i++ {
		t := k.Terms.Terminal(i)
		label := "shell"
		if t != nil && t.ProgramName != "" {
			label = t.ProgramName
		}
		segments = append(segments, screen.StatusSegment{
			Label:         label,
			Focused:       i == focused,
			TerminalIndex: i,
		})
	}
	k.deps.Screen.SetStatus(segments)
}

// HandleKey forwards one decoded keypress through the 0x21 ISR
// trampoline, then refreshes the status bar since Alt+Fn may have
// changed which terminal is focused.
func (k *Kernel) HandleKey(ev terminal.KeyEvent) {
	k.Interrupts.Keyboard(ev)
	k.rebuildStatusBar()
}

// Run implements spec.md §4.9's steady state: the PIT fires C4's
// scheduler on every tick; call 11 (shutdown) stops the loop. The
// real machine's "resume via IRET" has no analogue here since a task
// is a run-queue record (no goroutine is started per task and no
// program code is executed) — Run's only job is to keep raising the timer vector and
// refreshing the one piece of kernel-owned screen state that isn't a
// terminal's own backing page, the status bar.
func (k *Kernel) Run(ctx context.Context) (reason string, err error) {
	period := time.Second / time.Duration(k.cfg.TickHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case reason := <-k.Dispatcher.ShutdownSignal():
			k.log.Info("shutdown: %s", reason)
			return reason, nil
		case <-ticker.C:
			k.Interrupts.PITTick()
			k.rebuildStatusBar()
		}
	}
}

// Package hal collects the narrow interfaces this kernel uses to reach
// every external collaborator spec.md scopes out of the core: the
// floppy/DMA controller, the Sound Blaster driver, the PIC, the PIT and
// RTC register encodings, the PS/2 mouse decoder, and the exception
// printer. The core (internal/syscall, internal/terminal, ...) only
// ever depends on these interfaces, never on a concrete driver, so a
// headless test run and cmd/xioshost's hardware-backed run share the
// same kernel code and differ only in which hal implementation is
// wired in — the same separation the teacher draws between its Bus32
// core and its swappable GUI/audio/video backends (see gui_interface.go
// and audio_backend_*.go in the teacher repository).
package hal

import "context"

// FloppyController loads the filesystem image blob from the boot
// floppy. The DMA/CRC protocol itself is out of scope; this is the
// single narrow call the boot sequence needs from it.
type FloppyController interface {
	ReadImage(ctx context.Context) ([]byte, error)
}

// SoundCard is the narrow surface the soundctrl system call and the
// RTC-adjacent Sound Blaster 16 interrupt rely on. Function codes are
// driver-defined; this core only forwards them.
type SoundCard interface {
	// Control dispatches a soundctrl function against filename (which
	// may be empty for functions that don't need one). Returns an
	// error for an unknown function code.
	Control(function uint32, filename string) error
}

// InterruptController is the i8259 PIC's narrow surface: acknowledge
// (end-of-interrupt) and masking. Programming the controller's command
// words is out of scope.
type InterruptController interface {
	EndOfInterrupt(irq int)
	Mask(irq int)
	Unmask(irq int)
}

// IntervalTimer is the 8253/8254 PIT's narrow surface: the kernel only
// needs to know the configured tick frequency, not the register
// encoding used to set it.
type IntervalTimer interface {
	SetFrequencyHz(hz uint32)
	FrequencyHz() uint32
}

// RealTimeClock is the RTC chip's narrow surface used by /dev/rtc: set
// the periodic-interrupt rate as a power of two, in Hz.
type RealTimeClock interface {
	SetRateHz(hz uint32) error
	MinRateHz() uint32
	MaxRateHz() uint32
}

// MouseEvent is a decoded PS/2 mouse packet. Packet framing and
// movement-delta decoding are out of scope; the core only consumes
// already-decoded events.
type MouseEvent struct {
	DX, DY             int8
	LeftDown, RightDown bool
}

// PointingDevice delivers decoded mouse events to the screen driver.
type PointingDevice interface {
	// Next returns the next decoded event, blocking until one arrives
	// or ctx is done.
	Next(ctx context.Context) (MouseEvent, error)
}

// ExceptionPrinter renders the one-line reason for an unhandled user
// exception (divide error, page fault, GPF, ...) before halt(-1) runs.
type ExceptionPrinter interface {
	PrintException(vector int, pid int32)
}

// Formatter is the narrow printf/itoa surface this core needs to turn
// numbers into the text users see (shell prompts, directory listings).
// Out of scope per spec.md §1; the default implementation simply wraps
// fmt, the way any other driver here wraps the real external piece.
type Formatter interface {
	Itoa32(v int32) string
	Sprintf(format string, args ...any) string
}

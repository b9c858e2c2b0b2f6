package hal

import (
	"context"
	"fmt"
	"strconv"
)

// StdFormatter is the standard-library-backed Formatter. Every
// in-tree caller uses this; a custom Formatter only matters for tests
// that want to observe formatting calls.
type StdFormatter struct{}

func (StdFormatter) Itoa32(v int32) string                    { return strconv.FormatInt(int64(v), 10) }
func (StdFormatter) Sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

// MemoryFloppy serves a filesystem image already held in memory,
// standing in for the real floppy/DMA read during boot in tests and
// in the headless host.
type MemoryFloppy struct{ Image []byte }

func (m MemoryFloppy) ReadImage(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	out := make([]byte, len(m.Image))
	copy(out, m.Image)
	return out, nil
}

// NullSoundCard accepts every soundctrl function but produces no
// audio. Used when cmd/xioshost's config sets audio: none, by
// `xioshost ps`, and by tests.
type NullSoundCard struct{}

func (NullSoundCard) Control(function uint32, filename string) error { return nil }

// LogPIC is a PIC stand-in that just counts EOIs, enough for the
// interrupt surface's tests to assert every ISR acknowledges exactly
// once.
type LogPIC struct {
	EOIs   []int
	masked map[int]bool
}

func NewLogPIC() *LogPIC { return &LogPIC{masked: map[int]bool{}} }

func (p *LogPIC) EndOfInterrupt(irq int) { p.EOIs = append(p.EOIs, irq) }
func (p *LogPIC) Mask(irq int)           { p.masked[irq] = true }
func (p *LogPIC) Unmask(irq int)         { p.masked[irq] = false }
func (p *LogPIC) IsMasked(irq int) bool  { return p.masked[irq] }

// FixedPIT reports a constant configured frequency; SetFrequencyHz
// just records the last requested value, as the real chip's register
// write would.
type FixedPIT struct{ hz uint32 }

func NewFixedPIT(hz uint32) *FixedPIT      { return &FixedPIT{hz: hz} }
func (p *FixedPIT) SetFrequencyHz(hz uint32) { p.hz = hz }
func (p *FixedPIT) FrequencyHz() uint32      { return p.hz }

// SimpleRTC tracks the programmed rate within the chip's valid
// [2Hz, 8192Hz] power-of-two range without emulating the register
// encoding.
type SimpleRTC struct {
	rate    uint32
	minHz   uint32
	maxHz   uint32
}

func NewSimpleRTC() *SimpleRTC { return &SimpleRTC{rate: 2, minHz: 2, maxHz: 8192} }

func (r *SimpleRTC) SetRateHz(hz uint32) error {
	if hz < r.minHz || hz > r.maxHz || hz&(hz-1) != 0 {
		return fmt.Errorf("rtc: rate %d Hz is not a power of two in [%d,%d]", hz, r.minHz, r.maxHz)
	}
	r.rate = hz
	return nil
}
func (r *SimpleRTC) MinRateHz() uint32 { return r.minHz }
func (r *SimpleRTC) MaxRateHz() uint32 { return r.maxHz }
func (r *SimpleRTC) RateHz() uint32    { return r.rate }

// NoMouse never produces an event; used where no pointing device is
// wired (e.g. a headless boot with no GUI frontend).
type NoMouse struct{}

func (NoMouse) Next(ctx context.Context) (MouseEvent, error) {
	<-ctx.Done()
	return MouseEvent{}, ctx.Err()
}

// LogExceptionPrinter records the (vector, pid) pairs it was asked to
// print instead of writing to a screen, for use in tests that assert
// an unhandled exception produced exactly one halt(-1).
type LogExceptionPrinter struct {
	Printed []struct {
		Vector int
		PID    int32
	}
}

func (p *LogExceptionPrinter) PrintException(vector int, pid int32) {
	p.Printed = append(p.Printed, struct {
		Vector int
		PID    int32
	}{vector, pid})
}

package vfs

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/aerohand/xios/internal/hal"
)

// RTCOps is the RTC vtable (spec.md §4.6/§5): every open fd holds its
// own requested frequency, but only one physical rate is ever
// programmed into the chip — the maximum of every currently open fd's
// rate, tracked here by a reference count per log-2 frequency.
type RTCOps struct {
	clock hal.RealTimeClock

	mu        sync.Mutex
	cond      *sync.Cond
	counts    map[uint32]int
	effective uint32
	ticks     uint64
}

func NewRTCOps(clock hal.RealTimeClock) *RTCOps {
	r := &RTCOps{clock: clock, counts: map[uint32]int{}}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// rtcState is the per-fd Context the RTC vtable stashes on Open.
type rtcState struct {
	rate     uint32
	lastTick uint64
}

// defaultRTCRate is rtc_open's fixed starting frequency in the
// original kernel.
const defaultRTCRate = 2

func (r *RTCOps) Open(fd *FileDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[defaultRTCRate]++
	r.reprogramLocked()
	fd.Context = &rtcState{rate: defaultRTCRate, lastTick: r.ticks}
	return nil
}

func (r *RTCOps) Close(fd *FileDescriptor) error {
	st, ok := fd.Context.(*rtcState)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[st.rate]--
	if r.counts[st.rate] <= 0 {
		delete(r.counts, st.rate)
	}
	r.reprogramLocked()
	return nil
}

// Read blocks until enough ticks have elapsed at fd's requested rate,
// per spec.md §5 item 2: "rtc_read until the computed number of RTC
// ticks has elapsed." It never touches buf — the original syscall
// does not either.
func (r *RTCOps) Read(fd *FileDescriptor, buf []byte) (int, error) {
	st, ok := fd.Context.(*rtcState)
	if !ok {
		return 0, fmt.Errorf("vfs: rtc read on a descriptor with no rtc state")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.effective == 0 {
		return 0, fmt.Errorf("vfs: rtc has no active rate")
	}
	need := r.effective / st.rate
	if need == 0 {
		need = 1
	}
	target := st.lastTick + uint64(need)
	for r.ticks < target {
		r.cond.Wait()
	}
	st.lastTick = r.ticks
	return 0, nil
}

// Write reprograms fd's requested rate from a little-endian uint32 in
// buf, per spec.md §5: "writes move the count from old to new."
func (r *RTCOps) Write(fd *FileDescriptor, buf []byte) (int, error) {
	if len(buf) < 4 {
		return -1, fmt.Errorf("vfs: rtc write needs 4 bytes")
	}
	rate := binary.LittleEndian.Uint32(buf[:4])
	if rate == 0 || rate&(rate-1) != 0 {
		return -1, fmt.Errorf("vfs: rtc rate %d is not a power of two", rate)
	}
	if rate < r.clock.MinRateHz() || rate > r.clock.MaxRateHz() {
		return -1, fmt.Errorf("vfs: rtc rate %d out of range", rate)
	}
	st, ok := fd.Context.(*rtcState)
	if !ok {
		return -1, fmt.Errorf("vfs: rtc write on a descriptor with no rtc state")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[st.rate]--
	if r.counts[st.rate] <= 0 {
		delete(r.counts, st.rate)
	}
	r.counts[rate]++
	st.rate = rate
	r.reprogramLocked()
	return 4, nil
}

// Tick is driven by the interrupt surface's RTC trampoline (spec.md
// §4.9) once per physical tick of the programmed rate.
func (r *RTCOps) Tick() {
	r.mu.Lock()
	r.ticks++
	r.mu.Unlock()
	r.cond.Broadcast()
}

func (r *RTCOps) reprogramLocked() {
	max := uint32(0)
	for rate, count := range r.counts {
		if count > 0 && rate > max {
			max = rate
		}
	}
	if max == r.effective {
		return
	}
	r.effective = max
	if max > 0 {
		r.clock.SetRateHz(max)
	}
}

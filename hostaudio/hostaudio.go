// Package hostaudio implements hal.SoundCard against a real audio
// device via ebitengine/oto, the teacher's own audio backend library
// (audio_backend_oto.go). The teacher's OtoPlayer streams a
// continuously-running synth chip through oto.Player's io.Reader
// callback; this kernel has no synth chip to stream — soundctrl (spec.md
// call 12) is "play this named 8-bit PCM file, or stop," so Card reads
// the whole file up front and hands oto.Context.NewPlayer its bytes
// directly, the same NewPlayer(io.Reader) entry point OtoPlayer uses,
// just fed from a buffer instead of a ring.
package hostaudio

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Function codes for the soundctrl syscall (spec.md call 12). The
// driver-defined meaning of "function" is left to the SB16 driver per
// spec.md §1's Non-goals; this host driver defines only the two a
// kernel actually issues.
const (
	FunctionPlay uint32 = 0
	FunctionStop uint32 = 1

	// sampleRate and the raw-8-bit-PCM format match the SB16's native
	// single-cycle playback mode, the simplest format a filesystem
	// image can hold without a WAV/PCM header to parse.
	sampleRate = 8000
)

// Card is a hal.SoundCard backed by the host's real audio device.
type Card struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// New opens the host audio device. Callers should Close the returned
// Card on shutdown.
func New() (*Card, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
		BufferSize:   0, // oto picks a sensible default
	})
	if err != nil {
		return nil, fmt.Errorf("hostaudio: open device: %w", err)
	}
	<-ready
	return &Card{ctx: ctx}, nil
}

// Control implements hal.SoundCard.
func (c *Card) Control(function uint32, filename string) error {
	switch function {
	case FunctionPlay:
		return c.play(filename)
	case FunctionStop:
		c.stop()
		return nil
	default:
		return fmt.Errorf("hostaudio: unknown soundctrl function %d", function)
	}
}

func (c *Card) play(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("hostaudio: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		c.player.Close()
	}
	c.player = c.ctx.NewPlayer(bytes.NewReader(data))
	c.player.Play()
	return nil
}

func (c *Card) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		c.player.Close()
		c.player = nil
	}
}

// Close stops any playback and releases the device.
func (c *Card) Close() error {
	c.stop()
	return nil
}

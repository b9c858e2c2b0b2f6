package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aerohand/xios/internal/fsimage"
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/terminal"
)

func shellELF() []byte {
	img := make([]byte, 40)
	copy(img[0:4], []byte{0x7F, 'E', 'L', 'F'})
	return img
}

func testImage() []byte {
	b := fsimage.NewBuilder()
	b.AddFile("shell", fsimage.TypeFile, shellELF())
	b.AddFile(".", fsimage.TypeDirectory, nil)
	return b.Build()
}

func newTestKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	deps := Deps{
		Floppy:           hal.MemoryFloppy{Image: testImage()},
		PIC:              hal.NewLogPIC(),
		PIT:              hal.NewFixedPIT(100),
		Clock:            hal.NewSimpleRTC(),
		Sound:            hal.NullSoundCard{},
		Mouse:            hal.NoMouse{},
		ExceptionPrinter: &hal.LogExceptionPrinter{},
		Formatter:        hal.StdFormatter{},
		Screen:           screen.NewDriver(),
		ExecutableNames:  func() []string { return []string{"shell"} },
	}
	k := New(deps, cfg)
	require.NoError(t, k.Boot(context.Background()))
	return k
}

func TestBootSpawnsOneShellPerTerminal(t *testing.T) {
	k := newTestKernel(t, Config{NumTerminals: 3, Shells: []string{"shell", "shell", "shell"}})
	require.Equal(t, 3, k.pidCount())
	require.Equal(t, 3, k.Queue.NumTasks())
}

func TestBootAssignsDistinctTerminalsToEachShell(t *testing.T) {
	k := newTestKernel(t, Config{NumTerminals: 3, Shells: []string{"shell", "shell", "shell"}})
	seen := map[any]bool{}
	for _, p := range k.Procs.Live() {
		if p.PID == 0 {
			continue
		}
		require.NotNil(t, p.Terminal)
		require.False(t, seen[p.Terminal], "two shells shared a terminal")
		seen[p.Terminal] = true
	}
	require.Len(t, seen, 3)
}

func TestRunStopsOnShutdownSyscall(t *testing.T) {
	k := newTestKernel(t, Config{NumTerminals: 1, Shells: []string{"shell"}})

	done := make(chan struct {
		reason string
		err    error
	}, 1)
	go func() {
		reason, err := k.Run(context.Background())
		done <- struct {
			reason string
			err    error
		}{reason, err}
	}()

	k.Dispatcher.Shutdown("triple fault")

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, "triple fault", r.reason)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after shutdown")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	k := newTestKernel(t, Config{NumTerminals: 1, Shells: []string{"shell"}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := k.Run(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestHandleKeyAltF2SwitchesFocusAndRebuildsStatusBar(t *testing.T) {
	k := newTestKernel(t, Config{NumTerminals: 3, Shells: []string{"shell", "shell", "shell"}})
	k.HandleKey(terminal.KeyEvent{Key: terminal.KeyAlt, Pressed: true})
	k.HandleKey(terminal.KeyEvent{Key: terminal.KeyF2, Pressed: true})
	require.Equal(t, 1, k.Terms.Current())

	status := k.deps.Screen.Status()
	require.Len(t, status, 4) // "Start" + 3 terminals
	require.True(t, status[2].Focused)
	require.Equal(t, "shell", status[2].Label)
}

func TestBootFailsWithoutScreen(t *testing.T) {
	deps := Deps{
		Floppy:           hal.MemoryFloppy{Image: testImage()},
		PIC:              hal.NewLogPIC(),
		Clock:            hal.NewSimpleRTC(),
		Sound:            hal.NullSoundCard{},
		ExceptionPrinter: &hal.LogExceptionPrinter{},
		Formatter:        hal.StdFormatter{},
	}
	k := New(deps, Config{})
	require.Error(t, k.Boot(context.Background()))
}

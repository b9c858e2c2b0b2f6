package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aerohand/xios/internal/screen"
)

func newTestManager(exes []string) *Manager {
	return NewManager(screen.NewDriver(), nil, func() []string { return exes })
}

func TestTypingAndEnterSetsReadReady(t *testing.T) {
	m := newTestManager(nil)
	m.HandleKey(KeyEvent{Rune: 'l', Pressed: true})
	m.HandleKey(KeyEvent{Rune: 's', Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyEnter, Pressed: true})

	term := m.Terminal(0)
	buf := make([]byte, 8)
	n := term.KeyboardRead(func() bool { return m.Current() == 0 }, buf, nil)
	require.Equal(t, "ls\n", string(buf[:n]))
	for _, b := range buf[n:] {
		require.Zero(t, b)
	}
}

func TestBackspaceRemovesPriorCharacter(t *testing.T) {
	m := newTestManager(nil)
	m.HandleKey(KeyEvent{Rune: 'a', Pressed: true})
	m.HandleKey(KeyEvent{Rune: 'b', Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyBackspace, Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyEnter, Pressed: true})

	term := m.Terminal(0)
	buf := make([]byte, 8)
	n := term.KeyboardRead(func() bool { return true }, buf, nil)
	require.Equal(t, "a\n", string(buf[:n]))
}

func TestTabCompletesUniqueMatch(t *testing.T) {
	m := newTestManager([]string{"ls", "lsmod", "cat"})
	m.HandleKey(KeyEvent{Rune: 'c', Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyTab, Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyEnter, Pressed: true})

	term := m.Terminal(0)
	buf := make([]byte, 8)
	n := term.KeyboardRead(func() bool { return true }, buf, nil)
	require.Equal(t, "cat\n", string(buf[:n]))
}

func TestTabCompletesLongestCommonPrefixOnMultipleMatches(t *testing.T) {
	m := newTestManager([]string{"ls", "lsmod"})
	m.HandleKey(KeyEvent{Rune: 'l', Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyTab, Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyEnter, Pressed: true})

	term := m.Terminal(0)
	buf := make([]byte, 8)
	n := term.KeyboardRead(func() bool { return true }, buf, nil)
	require.Equal(t, "ls\n", string(buf[:n]))
}

func TestHasPrefixIsNotSubstringMatch(t *testing.T) {
	require.True(t, hasPrefix("ls", "lsmod"))
	require.False(t, hasPrefix("mod", "lsmod"), "substr is prefix-only, not substring")
}

func TestAltFnSwitchesFocus(t *testing.T) {
	m := newTestManager(nil)
	m.HandleKey(KeyEvent{Key: KeyAlt, Pressed: true})
	m.HandleKey(KeyEvent{Key: KeyF3, Pressed: true})
	require.Equal(t, 2, m.Current())
}

func TestKeyboardReadBlocksUntilFocusedAndReady(t *testing.T) {
	m := newTestManager(nil)
	m.SwitchFocus(1)
	term := m.Terminal(0)

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4)
		term.KeyboardRead(func() bool { return m.Current() == 0 }, buf, nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("read returned before this terminal regained focus")
	case <-time.After(20 * time.Millisecond):
	}

	m.SwitchFocus(0)
	m.HandleKey(KeyEvent{Key: KeyEnter, Pressed: true})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read did not unblock after focus returned and Enter was pressed")
	}
}

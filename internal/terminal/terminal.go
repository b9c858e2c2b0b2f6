// Package terminal implements the terminal manager (spec.md §4.7,
// component C7): ten terminal records with scrollback, the keypress
// state machine, and the blocking keyboard_read/keyboard_write
// syscalls. Grounded on the teacher's terminal_io.go (ring-buffer
// input device, atomic status flags) and video_screen_buffer.go
// (line-editing cursor/viewport model), and on
// original_source/student-distrib/keyboard.c for the exact key
// bindings and history/scrollback constants.
package terminal

import (
	"sync"

	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/vfs"
)

const (
	NumTerminals   = 10
	MaxScrollback  = 5
	MaxHistoryCmds = 16
	lineCapacity   = screen.Rows*screen.Cols + 1 - 7
)

// Page is one screen-sized backing store: a terminal keeps
// MaxScrollback+1 of them, the current page plus scrollback history,
// per spec.md §4.7.
type Page [screen.Rows][screen.Cols]screen.Cell

// modifiers tracks the three latch keys the keypress handler reads.
type modifiers struct {
	shift, ctrl, alt bool
}

// Terminal is one of the ten multiplexed sessions. A single mutex
// guards every field spec.md §5 calls out as ISR-touched (the line
// buffer, read_ready, scrollback) — the original's separate spin lock
// exists only because its keyboard_read's interrupt-enabled yield
// can't hold the coarser terminal lock across a schedule() call; this
// cooperative model's KeyboardRead yields via sync.Cond.Wait, which
// releases the same mutex it holds, so one lock is enough.
type Terminal struct {
	mu sync.Mutex

	index int

	pages      [MaxScrollback + 1]Page
	scrollback int // 0 = current page, up to MaxScrollback

	line       []byte
	cursor     int
	history    [][]byte
	historyPos int // -1 = not browsing history

	readReady bool
	readOut   []byte
	cond      *sync.Cond // signaled on readReady or on a focus change

	mods modifiers

	// ProgramName, set by the kernel once a program is attached, names
	// this terminal's current foreground program for the status bar
	// (spec.md §4.8 SUPPLEMENTED status content).
	ProgramName string

	Vidmapped bool
}

func newTerminal(index int) *Terminal {
	t := &Terminal{index: index, historyPos: -1}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Index returns this terminal's fixed slot number (0..NumTerminals-1).
func (t *Terminal) Index() int { return t.index }

// Manager owns all ten terminals plus which one currently has focus.
type Manager struct {
	mu              sync.Mutex
	screen          *screen.Driver
	clip            ClipboardReader
	terms           [NumTerminals]*Terminal
	current         int
	executableNames func() []string
}

// ClipboardReader is the narrow surface terminal needs from the host
// clipboard, so this package does not import golang.design/x/clipboard
// directly — the host wiring layer does, and passes an implementation
// in here.
type ClipboardReader interface {
	ReadText() []byte
}

func NewManager(scr *screen.Driver, clip ClipboardReader, executableNames func() []string) *Manager {
	m := &Manager{screen: scr, clip: clip, executableNames: executableNames}
	for i := range m.terms {
		m.terms[i] = newTerminal(i)
	}
	return m
}

func (m *Manager) Terminal(i int) *Terminal {
	if i < 0 || i >= NumTerminals {
		return nil
	}
	return m.terms[i]
}

func (m *Manager) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SwitchFocus implements spec.md §4.7's focus-switch sequence: hide
// cursor, snapshot outgoing terminal, load incoming terminal's
// backing page, show cursor. Callers (the keypress handler here, or
// the status bar click handler in cmd/xioshost) must hold whatever
// interrupts-disabled/terminal-lock discipline spec.md §5 demands;
// this method itself only does the data movement.
func (m *Manager) SwitchFocus(to int) {
	m.mu.Lock()
	if to < 0 || to >= NumTerminals || to == m.current {
		m.mu.Unlock()
		return
	}
	m.screen.HideCursor()

	outgoing := m.terms[m.current]
	outgoing.pages[0] = m.screen.Snapshot()

	incoming := m.terms[to]
	m.screen.Restore(incoming.pages[0])

	m.current = to
	m.screen.ShowCursor()
	m.mu.Unlock()

	// A focus change can change which terminal's KeyboardRead wakes
	// up, so every waiter needs a nudge.
	for _, t := range m.terms {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

// KeyEvent is a decoded keystroke delivered to HandleKey. Raw PS/2
// scancode translation (including the 0xE0 prefix strip) is out of
// scope per spec.md §1/§6; the host input backend hands this package
// already-decoded events.
type KeyEvent struct {
	Rune    rune // 0 for non-printable keys
	Key     SpecialKey
	Pressed bool // false on key-up, only meaningful for modifier latches
}

type SpecialKey int

const (
	KeyNone SpecialKey = iota
	KeyShift
	KeyCtrl
	KeyAlt
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyPgUp
	KeyPgDn
	KeyBackspace
	KeyEnter
	KeyTab
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyCtrlL
	KeyCtrlA
	KeyCtrlK
)

// HandleKey implements spec.md §4.7's keypress bindings against the
// currently focused terminal.
func (m *Manager) HandleKey(ev KeyEvent) {
	m.mu.Lock()
	t := m.terms[m.current]
	m.mu.Unlock()

	switch ev.Key {
	case KeyShift:
		t.mu.Lock()
		t.mods.shift = ev.Pressed
		t.mu.Unlock()
		return
	case KeyCtrl:
		t.mu.Lock()
		t.mods.ctrl = ev.Pressed
		t.mu.Unlock()
		return
	case KeyAlt:
		t.mu.Lock()
		t.mods.alt = ev.Pressed
		t.mu.Unlock()
		return
	}
	if !ev.Pressed {
		return
	}

	switch ev.Key {
	case KeyLeft:
		t.mu.Lock()
		if t.cursor > 0 {
			t.cursor--
		}
		t.mu.Unlock()
		return
	case KeyRight:
		t.mu.Lock()
		if t.cursor < len(t.line) {
			t.cursor++
		}
		t.mu.Unlock()
		return
	case KeyUp:
		t.browseHistory(-1)
		return
	case KeyDown:
		t.browseHistory(1)
		return
	case KeyPgUp:
		t.mu.Lock()
		if t.scrollback < MaxScrollback {
			t.scrollback++
		}
		t.mu.Unlock()
		return
	case KeyPgDn:
		t.mu.Lock()
		if t.scrollback > 0 {
			t.scrollback--
		}
		t.mu.Unlock()
		return
	case KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6, KeyF7:
		t.mu.Lock()
		alt := t.mods.alt
		t.mu.Unlock()
		if alt {
			m.SwitchFocus(int(ev.Key - KeyF1))
		}
		return
	case KeyBackspace:
		t.mu.Lock()
		if t.cursor > 0 {
			copy(t.line[t.cursor-1:], t.line[t.cursor:])
			t.line = t.line[:len(t.line)-1]
			t.cursor--
		}
		t.mu.Unlock()
		return
	case KeyEnter:
		t.commitLine()
		return
	case KeyTab:
		t.completeFromExecutables(m.executableNames())
		return
	case KeyCtrlL:
		// scrolls the current line to the top of the screen: modeled
		// as resetting scrollback to 0 and leaving layout to the
		// screen driver's own scroll-on-overflow behavior.
		t.mu.Lock()
		t.scrollback = 0
		t.mu.Unlock()
		return
	case KeyCtrlA:
		t.mu.Lock()
		t.cursor = 0
		t.mu.Unlock()
		return
	case KeyCtrlK:
		t.mu.Lock()
		t.line = t.line[:t.cursor]
		t.mu.Unlock()
		return
	}

	if ev.Rune != 0 {
		t.insertRune(byte(ev.Rune))
	}
}

func (t *Terminal) insertRune(ch byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertRuneLocked(ch)
}

func (t *Terminal) insertRuneLocked(ch byte) {
	if len(t.line) >= lineCapacity {
		return
	}
	t.line = append(t.line, 0)
	copy(t.line[t.cursor+1:], t.line[t.cursor:len(t.line)-1])
	t.line[t.cursor] = ch
	t.cursor++
}

func (t *Terminal) browseHistory(dir int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) == 0 {
		return
	}
	if t.historyPos < 0 {
		t.historyPos = len(t.history)
	}
	t.historyPos += dir
	if t.historyPos < 0 {
		t.historyPos = 0
	}
	if t.historyPos >= len(t.history) {
		t.historyPos = len(t.history)
		t.line = nil
		t.cursor = 0
		return
	}
	t.line = append([]byte(nil), t.history[t.historyPos]...)
	t.cursor = len(t.line)
}

// commitLine implements spec.md §4.7's Enter binding: append '\n',
// strip trailing spaces, push into the ring-buffer history, copy into
// the read-out buffer, set read_ready.
func (t *Terminal) commitLine() {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := len(t.line)
	for end > 0 && t.line[end-1] == ' ' {
		end--
	}
	trimmed := append([]byte(nil), t.line[:end]...)
	trimmed = append(trimmed, '\n')

	if len(t.history) >= MaxHistoryCmds {
		t.history = t.history[1:]
	}
	t.history = append(t.history, append([]byte(nil), trimmed...))
	t.historyPos = -1

	t.readOut = trimmed
	t.readReady = true
	t.line = nil
	t.cursor = 0
	t.cond.Broadcast()
}

// completeFromExecutables implements spec.md §4.7's Tab binding and
// spec.md §9 design note (c): prefix-only matching, not substring.
func (t *Terminal) completeFromExecutables(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := string(t.line[:t.cursor])
	var matches []string
	for _, n := range names {
		if hasPrefix(prefix, n) {
			matches = append(matches, n)
		}
	}
	var completion string
	switch len(matches) {
	case 0:
		return
	case 1:
		completion = matches[0][len(prefix):] + " "
	default:
		completion = longestCommonSuffix(matches, len(prefix))
	}
	for i := 0; i < len(completion); i++ {
		t.insertRuneLocked(completion[i])
	}
}

// hasPrefix reproduces the original substr's exact semantics: it
// tests whether s1 is a prefix of s2, not whether s1 occurs anywhere
// in s2. Tab completion depends on this.
func hasPrefix(s1, s2 string) bool {
	if len(s1) > len(s2) {
		return false
	}
	return s2[:len(s1)] == s1
}

func longestCommonSuffix(matches []string, from int) string {
	shortest := matches[0]
	for _, m := range matches[1:] {
		if len(m) < len(shortest) {
			shortest = m
		}
	}
	end := len(shortest)
loop:
	for i := from; i < len(shortest); i++ {
		for _, m := range matches {
			if m[i] != shortest[i] {
				end = i
				break loop
			}
		}
	}
	return shortest[from:end]
}

// PasteFromClipboard inserts the host clipboard's text content at the
// cursor, one byte at a time, the same way a burst of printable
// keypresses would.
func (m *Manager) PasteFromClipboard() {
	if m.clip == nil {
		return
	}
	text := m.clip.ReadText()
	m.mu.Lock()
	t := m.terms[m.current]
	m.mu.Unlock()
	for _, b := range text {
		if b == '\n' || b == '\r' {
			continue
		}
		t.insertRune(b)
	}
}

// KeyboardRead implements spec.md §4.7's keyboard_read: block until
// this terminal is focused and read_ready is set, then copy the
// read-out buffer into buf (capped, null-padded), clear read_ready,
// and return the byte count excluding padding.
//
// Blocking is a sync.Cond wait rather than the original's
// "schedule()-with-interrupts-temporarily-enabled" spin: both give
// every other runnable task a chance to make progress while this one
// waits, which is the property spec.md §4.7 actually requires.
// beforeWait, if non-nil, is called every time the condition is found
// false, just before cond.Wait blocks. No caller in this tree passes
// one (terminalOps.Read, the stdin file operation, passes nil), so the reading task's
// run-queue state is not changed while it waits.
func (t *Terminal) KeyboardRead(isFocused func() bool, buf []byte, beforeWait func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !(isFocused() && t.readReady) {
		if beforeWait != nil {
			beforeWait()
		}
		t.cond.Wait()
	}
	n := copy(buf, t.readOut)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	t.readReady = false
	return n
}

// KeyboardWrite implements spec.md §4.7's keyboard_write: draw via the
// screen driver when this terminal owns the foreground, otherwise
// write into its own backing page.
func (m *Manager) KeyboardWrite(t *Terminal, buf []byte) int {
	if m.Current() != t.index {
		t.mu.Lock()
		defer t.mu.Unlock()
		page := &t.pages[0]
		x, y := 0, 0
		for _, b := range buf {
			if b == '\n' {
				y++
				x = 0
				continue
			}
			page[y][x] = screen.Cell{Char: b, Attr: screen.DefaultAttribute}
			x++
			if x >= screen.Cols {
				x = 0
				y++
			}
			if y >= screen.Rows {
				y = screen.Rows - 1
			}
		}
		return len(buf)
	}
	for _, b := range buf {
		m.screen.Putc(b)
	}
	return len(buf)
}

// Ops returns a vfs.Operations implementation bound to this manager,
// used for stdin/stdout and any "/dev/stdin"/"/dev/stdout" open.
func (m *Manager) Ops() vfs.Operations { return &terminalOps{mgr: m} }

type terminalOps struct{ mgr *Manager }

func (o *terminalOps) Open(fd *vfs.FileDescriptor) error  { return nil }
func (o *terminalOps) Close(fd *vfs.FileDescriptor) error { return nil }

func (o *terminalOps) Read(fd *vfs.FileDescriptor, buf []byte) (int, error) {
	t, _ := fd.Context.(*Terminal)
	if t == nil {
		return 0, nil
	}
	isFocused := func() bool { return o.mgr.Current() == t.index }
	n := t.KeyboardRead(isFocused, buf, nil)
	return n, nil
}

func (o *terminalOps) Write(fd *vfs.FileDescriptor, buf []byte) (int, error) {
	t, _ := fd.Context.(*Terminal)
	if t == nil {
		return 0, nil
	}
	return o.mgr.KeyboardWrite(t, buf), nil
}

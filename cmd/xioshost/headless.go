// runHeadless drives the kernel from a real terminal instead of a
// window: stdin is put into raw mode and decoded byte-by-byte into
// terminal.KeyEvent the same way the GUI frontend decodes ebiten key
// events, and the screen driver's grid is redrawn with ANSI escapes
// on a fixed-rate ticker. Grounded on the teacher's terminal_host.go /
// terminal_host_windows.go (term.MakeRaw, CR->LF and DEL->BS
// translation, a dedicated reader goroutine draining stdin until a
// stop signal).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/aerohand/xios/internal/kernel"
	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/terminal"
)

func runHeadless(ctx context.Context, k *kernel.Kernel, scr *screen.Driver) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xioshost: stdin is not a terminal, continuing without input: %v\n", err)
	} else {
		defer term.Restore(fd, oldState)
	}

	go readHeadlessInput(ctx, k)

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			renderHeadless(scr)
		}
	}
}

func readHeadlessInput(ctx context.Context, k *kernel.Kernel) {
	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			for _, ev := range decodeHeadlessBytes(buf[:n]) {
				k.HandleKey(ev)
			}
		}
		if err != nil {
			return
		}
	}
}

// decodeHeadlessBytes turns a raw-mode stdin read into zero or more
// key events. It understands the handful of ANSI escape sequences a
// real terminal emits for the arrow/PgUp/PgDn keys this kernel binds
// (spec.md §4.7); function-key sequences are not decoded, and anything
// else is treated byte-by-byte.
func decodeHeadlessBytes(b []byte) []terminal.KeyEvent {
	var out []terminal.KeyEvent
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == 0x1b && i+2 < len(b) && b[i+1] == '[' {
			if ev, n, ok := decodeCSI(b[i+2:]); ok {
				out = append(out, ev)
				i += 1 + n
				continue
			}
		}
		switch c {
		case '\r':
			out = append(out, terminal.KeyEvent{Key: terminal.KeyEnter, Pressed: true})
		case 0x7f, 0x08:
			out = append(out, terminal.KeyEvent{Key: terminal.KeyBackspace, Pressed: true})
		case '\t':
			out = append(out, terminal.KeyEvent{Key: terminal.KeyTab, Pressed: true})
		case 0x0c: // Ctrl+L
			out = append(out, terminal.KeyEvent{Key: terminal.KeyCtrlL, Pressed: true})
		case 0x01: // Ctrl+A
			out = append(out, terminal.KeyEvent{Key: terminal.KeyCtrlA, Pressed: true})
		case 0x0b: // Ctrl+K
			out = append(out, terminal.KeyEvent{Key: terminal.KeyCtrlK, Pressed: true})
		case 0x1b:
			// Bare escape with no recognized sequence; ignore.
		default:
			if c >= 0x20 && c < 0x7f {
				out = append(out, terminal.KeyEvent{Rune: rune(c), Pressed: true})
			}
		}
	}
	return out
}

// decodeCSI decodes the bytes following "ESC [", returning the
// consumed length (not counting "ESC [" itself).
func decodeCSI(rest []byte) (terminal.KeyEvent, int, bool) {
	switch {
	case len(rest) >= 1 && rest[0] == 'A':
		return terminal.KeyEvent{Key: terminal.KeyUp, Pressed: true}, 1, true
	case len(rest) >= 1 && rest[0] == 'B':
		return terminal.KeyEvent{Key: terminal.KeyDown, Pressed: true}, 1, true
	case len(rest) >= 1 && rest[0] == 'C':
		return terminal.KeyEvent{Key: terminal.KeyRight, Pressed: true}, 1, true
	case len(rest) >= 1 && rest[0] == 'D':
		return terminal.KeyEvent{Key: terminal.KeyLeft, Pressed: true}, 1, true
	case len(rest) >= 2 && rest[0] == '5' && rest[1] == '~':
		return terminal.KeyEvent{Key: terminal.KeyPgUp, Pressed: true}, 2, true
	case len(rest) >= 2 && rest[0] == '6' && rest[1] == '~':
		return terminal.KeyEvent{Key: terminal.KeyPgDn, Pressed: true}, 2, true
	}
	return terminal.KeyEvent{}, 0, false
}

// renderHeadless repaints the full grid with one ANSI "home cursor,
// clear to end" sequence per frame, the simplest redraw strategy that
// never leaves stale glyphs behind between terminal sizes.
func renderHeadless(scr *screen.Driver) {
	var sb strings.Builder
	sb.WriteString("\x1b[H")
	for y := 0; y < screen.Rows; y++ {
		for x := 0; x < screen.Cols; x++ {
			cell := scr.CellAt(x, y)
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			sb.WriteByte(ch)
		}
		sb.WriteString("\x1b[K\r\n")
	}
	for _, seg := range scr.Status() {
		marker := " "
		if seg.Focused {
			marker = "*"
		}
		fmt.Fprintf(&sb, "[%s%s]", marker, seg.Label)
	}
	sb.WriteString("\x1b[K")
	os.Stdout.WriteString(sb.String())
}

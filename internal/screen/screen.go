// Package screen implements the VGA text-mode driver (spec.md §4.8,
// component C8): an 80x24 character+attribute grid plus a persistent
// status bar row, grounded on the teacher's video_vga.go /
// vga_constants.go (which model the same cell-plus-attribute text
// surface for its own 80x25 VGA text mode) and on
// original_source/student-distrib/lib.c's putc/scroll.
package screen

import "sync"

const (
	Cols = 80
	Rows = 24 // NUM_ROWS; row Rows itself is the status bar

	// DefaultAttribute is light-grey-on-black, the BIOS default text
	// attribute byte.
	DefaultAttribute = 0x07
)

// Cell is one character cell: the glyph plus its VGA attribute byte
// (background/foreground nibbles).
type Cell struct {
	Char byte
	Attr byte
}

// Observer is notified whenever a cell's attribute changes, the hook
// spec.md §4.8 describes as used by the mouse driver to know which
// cell it is currently "hiding" under its cursor glyph.
type Observer interface {
	OnAttributeChanged(x, y int, attr byte)
}

// StatusSegment is one clickable region of the status bar: segment 0
// is the Start button and segments 1..N host terminal labels, segment
// i+1 for terminal i; there is no spacer segment between them
// (spec.md §4.8's SUPPLEMENTED status-bar content carries the running
// program's name in each terminal's segment, shown in inverted
// attribute when that terminal has focus).
type StatusSegment struct {
	Label         string
	Focused       bool
	TerminalIndex int // -1 for the Start button
}

// Driver owns the 80x24 text grid, the cursor, and the status bar.
type Driver struct {
	mu sync.Mutex

	grid [Rows][Cols]Cell
	x, y int
	attr byte

	cursorVisible bool

	status []StatusSegment

	observers []Observer
}

func NewDriver() *Driver {
	d := &Driver{attr: DefaultAttribute, cursorVisible: true}
	d.clearGrid()
	return d
}

func (d *Driver) clearGrid() {
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			d.grid[y][x] = Cell{Char: ' ', Attr: d.attr}
		}
	}
}

func (d *Driver) AddObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

func (d *Driver) notify(x, y int, attr byte) {
	for _, o := range d.observers {
		o.OnAttributeChanged(x, y, attr)
	}
}

// SetAttribute changes the attribute byte used by subsequent Putc
// calls.
func (d *Driver) SetAttribute(attr byte) {
	d.mu.Lock()
	d.attr = attr
	d.mu.Unlock()
}

// Putc writes ch with the driver's current attribute at (x, y),
// advancing the cursor, per spec.md §4.8. '\n' advances y and resets
// x to 0; reaching the final row scrolls the grid up one line.
func (d *Driver) Putc(ch byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch == '\n' {
		d.y++
		d.x = 0
	} else {
		d.grid[d.y][d.x] = Cell{Char: ch, Attr: d.attr}
		d.notify(d.x, d.y, d.attr)
		d.x++
		if d.x >= Cols {
			d.x = 0
			d.y++
		}
	}
	if d.y >= Rows {
		d.scrollUp()
		d.y = Rows - 1
	}
}

func (d *Driver) scrollUp() {
	for y := 0; y < Rows-1; y++ {
		d.grid[y] = d.grid[y+1]
	}
	for x := 0; x < Cols; x++ {
		d.grid[Rows-1][x] = Cell{Char: ' ', Attr: d.attr}
	}
}

// Cursor reports the current (x, y) and whether it is currently drawn
// inverted.
func (d *Driver) Cursor() (x, y int, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.x, d.y, d.cursorVisible
}

func (d *Driver) SetCursorPosition(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if x < 0 {
		x = 0
	}
	if x >= Cols {
		x = Cols - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= Rows {
		y = Rows - 1
	}
	d.x, d.y = x, y
}

func (d *Driver) HideCursor() {
	d.mu.Lock()
	d.cursorVisible = false
	d.mu.Unlock()
}

func (d *Driver) ShowCursor() {
	d.mu.Lock()
	d.cursorVisible = true
	d.mu.Unlock()
}

// CellAt returns the grid cell at (x, y), with the cursor's inverted
// attribute applied if it sits there and is visible — "the cursor is
// represented by inverting the attribute at (x, y)" per spec.md §4.8.
func (d *Driver) CellAt(x, y int) Cell {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.grid[y][x]
	if d.cursorVisible && x == d.x && y == d.y {
		c.Attr = invert(c.Attr)
	}
	return c
}

func invert(attr byte) byte {
	fg := attr & 0x0F
	bg := (attr >> 4) & 0x0F
	return (fg << 4) | bg
}

// SetStatus replaces the status bar's segments wholesale; the kernel
// rebuilds this list whenever a terminal's running program changes or
// focus switches.
func (d *Driver) SetStatus(segments []StatusSegment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = segments
}

func (d *Driver) Status() []StatusSegment {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]StatusSegment, len(d.status))
	copy(out, d.status)
	return out
}

// SegmentAt returns the index of the status segment a click at column
// x would hit, or -1. Segment widths are split evenly across Cols.
func (d *Driver) SegmentAt(x int) int {
	d.mu.Lock()
	segs := d.status
	d.mu.Unlock()
	if len(segs) == 0 {
		return -1
	}
	width := Cols / len(segs)
	idx := x / width
	if idx >= len(segs) {
		idx = len(segs) - 1
	}
	return idx
}

// Snapshot copies the entire grid, used by the terminal manager to
// save/restore a backing page on focus switch.
func (d *Driver) Snapshot() [Rows][Cols]Cell {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grid
}

func (d *Driver) Restore(g [Rows][Cols]Cell) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grid = g
}

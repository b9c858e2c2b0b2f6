// Package hostdisplay renders internal/screen.Driver's 80x24
// character grid plus status bar to a real window, and turns window
// key/mouse events into the terminal package's decoded event shape.
//
// Grounded on the teacher's video_backend_ebiten.go: the same
// software-framebuffer-then-WritePixels pattern (EbitenOutput builds
// a []byte RGBA buffer and hands it to an ebiten.Image each frame
// rather than drawing primitives straight onto the window), and the
// same handleKeyboardInput shape (poll modifier state every Update,
// react to inpututil.IsKeyJustPressed for the rest, forward printable
// runes via ebiten.AppendInputChars). The 8x16 bitmap glyph table
// itself (video_vga.go's vgaFont8x16) is replaced with
// golang.org/x/image/font/basicfont's Face7x13, already present in
// go.mod's dependency graph for exactly this purpose — reusing a
// library-shipped bitmap face instead of vendoring a few thousand
// lines of hex glyph data.
package hostdisplay

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/terminal"
)

const (
	CellWidth  = 8
	CellHeight = 16

	totalRows = screen.Rows + 1 // one extra row for the status bar
	winWidth  = CellWidth * screen.Cols
	winHeight = CellHeight * totalRows
)

// vgaPalette is the teacher's initDefaultPalette standard 16-color
// table (video_vga.go), its 6-bit DAC components rescaled to 8-bit.
var vgaPalette = [16]color.RGBA{
	scale6(0, 0, 0), scale6(0, 0, 42), scale6(0, 42, 0), scale6(0, 42, 42),
	scale6(42, 0, 0), scale6(42, 0, 42), scale6(42, 21, 0), scale6(42, 42, 42),
	scale6(21, 21, 21), scale6(21, 21, 63), scale6(21, 63, 21), scale6(21, 63, 63),
	scale6(63, 21, 21), scale6(63, 21, 63), scale6(63, 63, 21), scale6(63, 63, 63),
}

func scale6(r, g, b uint8) color.RGBA {
	up := func(v uint8) uint8 { return uint8(uint32(v) * 255 / 63) }
	return color.RGBA{R: up(r), G: up(g), B: up(b), A: 255}
}

func cellColors(attr byte) (fg, bg color.RGBA) {
	return vgaPalette[attr&0x0F], vgaPalette[(attr>>4)&0x0F]
}

// ClipboardReader adapts golang.design/x/clipboard to
// terminal.ClipboardReader, lazily initializing the platform
// clipboard backend on first use so headless test builds never touch
// it.
type ClipboardReader struct {
	once sync.Once
	ok   bool
}

func NewClipboardReader() *ClipboardReader { return &ClipboardReader{} }

func (c *ClipboardReader) ReadText() []byte {
	c.once.Do(func() { c.ok = clipboard.Init() == nil })
	if !c.ok {
		return nil
	}
	return clipboard.Read(clipboard.FmtText)
}

// Game is an ebiten.Game rendering one screen.Driver and forwarding
// decoded input to the kernel.
type Game struct {
	driver *screen.Driver
	onKey  func(terminal.KeyEvent)
	paste  func()
	onClick func(segment int)

	face   font.Face
	frame  *image.RGBA
	target *ebiten.Image

	shift, ctrl, alt bool
}

// NewGame wires a renderer against driver. onKey receives every
// decoded keystroke in the shape internal/interrupt.Table.Keyboard
// expects; paste is invoked on Ctrl+Shift+V (typically
// terminal.Manager.PasteFromClipboard); onClick, if non-nil, receives
// screen.Driver.SegmentAt's result for a left click on the status bar
// row.
func NewGame(driver *screen.Driver, onKey func(terminal.KeyEvent), paste func(), onClick func(segment int)) *Game {
	return &Game{
		driver: driver,
		onKey:  onKey,
		paste:  paste,
		onClick: onClick,
		face:   basicfont.Face7x13,
		frame:  image.NewRGBA(image.Rect(0, 0, winWidth, winHeight)),
	}
}

// Run opens the window and blocks until it is closed.
func Run(title string, g *Game) error {
	ebiten.SetWindowSize(winWidth*2, winHeight*2)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	return ebiten.RunGame(g)
}

func (g *Game) Layout(_, _ int) (int, int) { return winWidth, winHeight }

func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	g.pollModifiers()
	g.pollPrintable()
	g.pollSpecial()
	g.pollMouse()
	return nil
}

func (g *Game) emit(ev terminal.KeyEvent) {
	if g.onKey != nil {
		g.onKey(ev)
	}
}

func (g *Game) pollModifiers() {
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	alt := ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight)
	if shift != g.shift {
		g.shift = shift
		g.emit(terminal.KeyEvent{Key: terminal.KeyShift, Pressed: shift})
	}
	if ctrl != g.ctrl {
		g.ctrl = ctrl
		g.emit(terminal.KeyEvent{Key: terminal.KeyCtrl, Pressed: ctrl})
	}
	if alt != g.alt {
		g.alt = alt
		g.emit(terminal.KeyEvent{Key: terminal.KeyAlt, Pressed: alt})
	}
}

func (g *Game) pollPrintable() {
	if g.ctrl && g.shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		if g.paste != nil {
			g.paste()
		}
		return
	}
	if g.ctrl {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyL):
			g.emit(terminal.KeyEvent{Key: terminal.KeyCtrlL, Pressed: true})
			return
		case inpututil.IsKeyJustPressed(ebiten.KeyA):
			g.emit(terminal.KeyEvent{Key: terminal.KeyCtrlA, Pressed: true})
			return
		case inpututil.IsKeyJustPressed(ebiten.KeyK):
			g.emit(terminal.KeyEvent{Key: terminal.KeyCtrlK, Pressed: true})
			return
		}
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r <= 0xFF {
			g.emit(terminal.KeyEvent{Rune: r, Pressed: true})
		}
	}
}

var specialKeys = map[ebiten.Key]terminal.SpecialKey{
	ebiten.KeyArrowLeft:  terminal.KeyLeft,
	ebiten.KeyArrowRight: terminal.KeyRight,
	ebiten.KeyArrowUp:    terminal.KeyUp,
	ebiten.KeyArrowDown:  terminal.KeyDown,
	ebiten.KeyPageUp:     terminal.KeyPgUp,
	ebiten.KeyPageDown:   terminal.KeyPgDn,
	ebiten.KeyBackspace:  terminal.KeyBackspace,
	ebiten.KeyEnter:      terminal.KeyEnter,
	ebiten.KeyNumpadEnter: terminal.KeyEnter,
	ebiten.KeyTab:        terminal.KeyTab,
	ebiten.KeyF1:         terminal.KeyF1,
	ebiten.KeyF2:         terminal.KeyF2,
	ebiten.KeyF3:         terminal.KeyF3,
	ebiten.KeyF4:         terminal.KeyF4,
	ebiten.KeyF5:         terminal.KeyF5,
	ebiten.KeyF6:         terminal.KeyF6,
	ebiten.KeyF7:         terminal.KeyF7,
}

func (g *Game) pollSpecial() {
	for key, sk := range specialKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.emit(terminal.KeyEvent{Key: sk, Pressed: true})
		}
	}
}

func (g *Game) pollMouse() {
	if g.onClick == nil {
		return
	}
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if my/CellHeight != screen.Rows {
		return
	}
	if seg := g.driver.SegmentAt(mx / CellWidth); seg >= 0 {
		g.onClick(seg)
	}
}

func (g *Game) Draw(dst *ebiten.Image) {
	g.render()
	if g.target == nil {
		g.target = ebiten.NewImage(winWidth, winHeight)
	}
	g.target.WritePixels(g.frame.Pix)
	dst.DrawImage(g.target, nil)
}

func (g *Game) render() {
	for y := 0; y < screen.Rows; y++ {
		for x := 0; x < screen.Cols; x++ {
			cell := g.driver.CellAt(x, y)
			g.drawCell(x, y, cell.Char, cell.Attr)
		}
	}
	g.drawStatusBar()
}

func (g *Game) drawStatusBar() {
	segments := g.driver.Status()
	if len(segments) == 0 {
		g.fillRect(0, screen.Rows, screen.Cols, 1, vgaPalette[0])
		return
	}
	width := screen.Cols / len(segments)
	for i, seg := range segments {
		attr := byte(0x1F) // blue background, white foreground
		if seg.Focused {
			attr = invertAttr(attr)
		}
		col := i * width
		w := width
		if i == len(segments)-1 {
			w = screen.Cols - col
		}
		g.fillRect(col, screen.Rows, w, 1, vgaPalette[(attr>>4)&0x0F])
		g.drawText(col, screen.Rows, seg.Label, vgaPalette[attr&0x0F])
	}
}

func invertAttr(attr byte) byte {
	fg := attr & 0x0F
	bg := (attr >> 4) & 0x0F
	return (fg << 4) | bg
}

func (g *Game) drawCell(x, y int, ch byte, attr byte) {
	fg, bg := cellColors(attr)
	g.fillRect(x, y, 1, 1, bg)
	if ch != ' ' && ch != 0 {
		g.drawText(x, y, string(rune(ch)), fg)
	}
}

func (g *Game) fillRect(col, row, w, h int, c color.RGBA) {
	rect := image.Rect(col*CellWidth, row*CellHeight, (col+w)*CellWidth, (row+h)*CellHeight)
	draw.Draw(g.frame, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func (g *Game) drawText(col, row int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  g.frame,
		Src:  &image.Uniform{C: c},
		Face: g.face,
		Dot:  fixed.P(col*CellWidth, row*CellHeight+CellHeight-4),
	}
	d.DrawString(s)
}

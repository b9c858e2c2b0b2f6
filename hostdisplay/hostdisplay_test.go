package hostdisplay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/terminal"
)

func TestCellColorsSplitsNibbles(t *testing.T) {
	fg, bg := cellColors(0x1F)
	require.Equal(t, vgaPalette[0x0F], fg)
	require.Equal(t, vgaPalette[0x01], bg)
}

func TestInvertAttrSwapsNibbles(t *testing.T) {
	require.Equal(t, byte(0xF1), invertAttr(0x1F))
}

func TestNewGameRendersWithoutPanicking(t *testing.T) {
	driver := screen.NewDriver()
	driver.Putc('A')
	driver.SetStatus([]screen.StatusSegment{{Label: "Start", TerminalIndex: -1}, {Label: "shell", Focused: true, TerminalIndex: 0}})

	var got []terminal.KeyEvent
	g := NewGame(driver, func(ev terminal.KeyEvent) { got = append(got, ev) }, nil, nil)
	require.NotPanics(t, g.render)

	w, h := g.Layout(0, 0)
	require.Equal(t, winWidth, w)
	require.Equal(t, winHeight, h)
}

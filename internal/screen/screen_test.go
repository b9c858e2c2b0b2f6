package screen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutcAdvancesCursor(t *testing.T) {
	d := NewDriver()
	d.Putc('A')
	x, y, _ := d.Cursor()
	require.Equal(t, 1, x)
	require.Equal(t, 0, y)
	require.Equal(t, byte('A'), d.CellAt(0, 0).Char)
}

func TestNewlineAdvancesRowAndResetsColumn(t *testing.T) {
	d := NewDriver()
	d.Putc('A')
	d.Putc('\n')
	x, y, _ := d.Cursor()
	require.Equal(t, 0, x)
	require.Equal(t, 1, y)
}

func TestLastRowScrolls(t *testing.T) {
	d := NewDriver()
	d.Putc('X')
	for i := 0; i < Rows; i++ {
		d.Putc('\n')
	}
	require.NotEqual(t, byte('X'), d.CellAt(0, 0).Char, "original row scrolled off the top")
}

func TestCursorInvertsAttributeAtItsCell(t *testing.T) {
	d := NewDriver()
	d.HideCursor() // NewDriver starts with the cursor shown
	base := d.CellAt(0, 0).Attr
	d.ShowCursor()
	require.NotEqual(t, base, d.CellAt(0, 0).Attr)
	d.HideCursor()
	require.Equal(t, base, d.CellAt(0, 0).Attr)
}

type recordingObserver struct {
	calls int
}

func (r *recordingObserver) OnAttributeChanged(x, y int, attr byte) { r.calls++ }

func TestAttributeChangeBroadcastsToObservers(t *testing.T) {
	d := NewDriver()
	obs := &recordingObserver{}
	d.AddObserver(obs)
	d.Putc('A')
	require.Equal(t, 1, obs.calls)
}

func TestSegmentAtSplitsEvenly(t *testing.T) {
	d := NewDriver()
	d.SetStatus([]StatusSegment{{Label: "Start", TerminalIndex: -1}, {Label: "t1"}, {Label: "t2"}, {Label: "t3"}, {Label: "t4"}})
	require.Equal(t, 0, d.SegmentAt(0))
	require.Equal(t, len(d.Status())-1, d.SegmentAt(Cols-1))
}

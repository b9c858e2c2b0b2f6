package process

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAssignsSequentialPIDs(t *testing.T) {
	tbl := NewTable()
	kernel := tbl.Kernel()
	a, err := tbl.New(kernel)
	require.NoError(t, err)
	require.Equal(t, int32(1), a.PID)
	b, err := tbl.New(kernel)
	require.NoError(t, err)
	require.Equal(t, int32(2), b.PID)
}

func TestTopLevelShellHasKernelParent(t *testing.T) {
	tbl := NewTable()
	kernel := tbl.Kernel()
	shell, err := tbl.New(kernel)
	require.NoError(t, err)
	require.True(t, shell.IsTopLevelShell())
}

func TestNestedExecuteIncrementsLevel(t *testing.T) {
	tbl := NewTable()
	kernel := tbl.Kernel()
	shell, _ := tbl.New(kernel)
	require.Equal(t, int32(1), shell.Level)
	child, _ := tbl.New(shell)
	require.Equal(t, int32(2), child.Level)
	require.False(t, child.IsTopLevelShell())
}

func TestClosedSlotIsReusedByNextPIDScan(t *testing.T) {
	tbl := NewTable()
	kernel := tbl.Kernel()
	a, _ := tbl.New(kernel)
	b, _ := tbl.New(kernel)
	require.Equal(t, int32(1), a.PID)
	require.Equal(t, int32(2), b.PID)

	// Closing the highest-numbered live pid lets it be reused, matching
	// the original's "scan for max present pid, add 1" allocator.
	tbl.Close(b.PID)
	c, err := tbl.New(kernel)
	require.NoError(t, err)
	require.Equal(t, int32(2), c.PID)
}

func TestClosingLowPIDDoesNotFreeHigherNumbers(t *testing.T) {
	tbl := NewTable()
	kernel := tbl.Kernel()
	a, _ := tbl.New(kernel)
	_, _ = tbl.New(kernel)
	tbl.Close(a.PID)

	next, err := tbl.New(kernel)
	require.NoError(t, err)
	require.Equal(t, int32(3), next.PID, "pid 2 is still live, so pid numbering keeps climbing past it")
}

func TestSchedNodeRoundTrips(t *testing.T) {
	tbl := NewTable()
	p, _ := tbl.New(tbl.Kernel())
	p.SetSchedNode("anything")
	require.Equal(t, "anything", p.SchedNode())
}

func TestGetRejectsOutOfRangePID(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Get(-1)
	require.False(t, ok)
	_, ok = tbl.Get(MaxProcesses)
	require.False(t, ok)
}

package interrupt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/paging"
	"github.com/aerohand/xios/internal/process"
	"github.com/aerohand/xios/internal/sched"
	"github.com/aerohand/xios/internal/syscall"
	"github.com/aerohand/xios/internal/terminal"
	"github.com/aerohand/xios/internal/vfs"
)

func newTestTable(t *testing.T) (*Table, *hal.LogPIC, *process.Table, *sched.Queue) {
	t.Helper()
	procs := process.NewTable()
	queue := sched.NewQueue()
	scheduler := sched.NewScheduler(queue)
	pg := paging.NewManager()
	rtc := vfs.NewRTCOps(hal.NewSimpleRTC())
	terms := terminal.NewManager(nil, nil, func() []string { return nil })
	disp := syscall.NewDispatcher(procs, queue, scheduler, pg, nil, terms, rtc, hal.NullSoundCard{}, hal.StdFormatter{})
	pic := hal.NewLogPIC()
	printer := &hal.LogExceptionPrinter{}

	halted := map[int32]int32{}
	tbl := NewTable(pic, printer, disp, scheduler, terms, rtc,
		func(pid int32, status int32) { halted[pid] = status; disp.Halt(pid, status) },
		func() int32 { return 1 },
	)
	return tbl, pic, procs, queue
}

func TestHardwareISRsAlwaysAcknowledgePIC(t *testing.T) {
	tbl, pic, _, _ := newTestTable(t)

	tbl.PITTick()
	require.Equal(t, []int{0}, pic.EOIs)

	tbl.RTCTick()
	require.Equal(t, []int{0, 8}, pic.EOIs)

	tbl.SB16()
	tbl.Floppy()
	require.Equal(t, []int{0, 8, 5, 6}, pic.EOIs)
}

func TestRaiseExceptionPrintsAndHalts(t *testing.T) {
	procs := process.NewTable()
	queue := sched.NewQueue()
	scheduler := sched.NewScheduler(queue)
	pg := paging.NewManager()
	rtc := vfs.NewRTCOps(hal.NewSimpleRTC())
	terms := terminal.NewManager(nil, nil, func() []string { return nil })
	disp := syscall.NewDispatcher(procs, queue, scheduler, pg, nil, terms, rtc, hal.NullSoundCard{}, hal.StdFormatter{})
	pic := hal.NewLogPIC()
	printer := &hal.LogExceptionPrinter{}

	kernel := procs.Kernel()
	child, err := procs.New(kernel)
	require.NoError(t, err)

	haltedPID := int32(-1)
	tbl := NewTable(pic, printer, disp, scheduler, terms, rtc,
		func(pid int32, status int32) {
			haltedPID = pid
			require.Equal(t, int32(-1), status)
		},
		func() int32 { return child.PID },
	)

	tbl.RaiseException(VectorPageFault)
	require.Equal(t, child.PID, haltedPID)
	require.Len(t, printer.Printed, 1)
	require.Equal(t, VectorPageFault, printer.Printed[0].Vector)
	require.Equal(t, child.PID, printer.Printed[0].PID)
}

func TestSyscallGateDispatchesByNumber(t *testing.T) {
	tbl, _, procs, _ := newTestTable(t)
	kernel := procs.Kernel()
	shell, err := procs.New(kernel)
	require.NoError(t, err)
	shell.Args = "hello"

	buf := make([]byte, 16)
	n := tbl.Syscall(shell.PID, SyscallArgs{Number: syscall.CallGetArgs, Buf: buf})
	require.Equal(t, int32(0), n)
	require.Equal(t, "hello", string(buf[:5]))

	require.Equal(t, int32(-1), tbl.Syscall(shell.PID, SyscallArgs{Number: syscall.CallSetHandler}))
	require.Equal(t, int32(-1), tbl.Syscall(shell.PID, SyscallArgs{Number: 99}))
}

func TestPITTickReportsSchedulerResult(t *testing.T) {
	tbl, _, procs, queue := newTestTable(t)
	kernel := procs.Kernel()
	a, err := procs.New(kernel)
	require.NoError(t, err)
	b, err := procs.New(kernel)
	require.NoError(t, err)

	taskA := &sched.Task{PID: a.PID, Process: a, State: sched.Active}
	taskB := &sched.Task{PID: b.PID, Process: b, State: sched.Active}
	queue.Add(taskA)
	queue.Add(taskB)

	result := tbl.PITTick()
	require.True(t, result.Switched)
}

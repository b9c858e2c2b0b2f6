package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type nullOps struct{}

func (nullOps) Open(fd *FileDescriptor) error                  { return nil }
func (nullOps) Read(fd *FileDescriptor, buf []byte) (int, error)  { return 0, nil }
func (nullOps) Write(fd *FileDescriptor, buf []byte) (int, error) { return len(buf), nil }
func (nullOps) Close(fd *FileDescriptor) error                 { return nil }

type stubResolver struct{}

func (stubResolver) Resolve(name string) (Operations, Kind, any, uint32, bool) {
	if name == "nope" {
		return nil, 0, nil, 0, false
	}
	return nullOps{}, KindRegular, nil, 0, true
}

func TestInitFillsStdinStdout(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, "term")
	stdin, ok := tbl.Get(0)
	require.True(t, ok)
	require.True(t, stdin.CanRead)
	require.False(t, stdin.CanWrite)
	stdout, ok := tbl.Get(1)
	require.True(t, ok)
	require.False(t, stdout.CanRead)
	require.True(t, stdout.CanWrite)
}

func TestOpenUnresolvableFails(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	fd, err := tbl.Open("nope", stubResolver{})
	require.Error(t, err)
	require.Equal(t, -1, fd)
}

func TestOpenAssignsFromSlotTwo(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	fd, err := tbl.Open("whatever", stubResolver{})
	require.NoError(t, err)
	require.Equal(t, 2, fd)
}

func TestOpenFailsWhenTableFull(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	for i := 0; i < MaxFiles-2; i++ {
		_, err := tbl.Open("whatever", stubResolver{})
		require.NoError(t, err)
	}
	_, err := tbl.Open("whatever", stubResolver{})
	require.ErrorIs(t, err, ErrTableFull)
}

func TestCloseStdinStdoutFails(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	require.ErrorIs(t, tbl.Close(0), ErrReservedFD)
	require.ErrorIs(t, tbl.Close(1), ErrReservedFD)
}

func TestCloseAllClosesEverything(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	tbl.Open("whatever", stubResolver{})
	tbl.CloseAll()
	_, ok := tbl.Get(0)
	require.False(t, ok)
	_, ok = tbl.Get(2)
	require.False(t, ok)
}

func TestReadWriteRespectDirectionFlags(t *testing.T) {
	var tbl Table
	tbl.Init(nullOps{}, nil)
	_, err := tbl.Write(0, []byte("x"))
	require.ErrorIs(t, err, ErrNotWritable)
	_, err = tbl.Read(1, make([]byte, 1))
	require.ErrorIs(t, err, ErrNotReadable)
}

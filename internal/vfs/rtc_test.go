package vfs

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aerohand/xios/internal/hal"
)

func TestRTCOpenSetsDefaultRateAndProgramsChip(t *testing.T) {
	clock := hal.NewSimpleRTC()
	ops := NewRTCOps(clock)
	var fd FileDescriptor
	require.NoError(t, ops.Open(&fd))
	require.Equal(t, uint32(defaultRTCRate), clock.RateHz())
}

func TestRTCEffectiveRateIsMaxOfOpenFDs(t *testing.T) {
	clock := hal.NewSimpleRTC()
	ops := NewRTCOps(clock)
	var a, b FileDescriptor
	require.NoError(t, ops.Open(&a))
	require.NoError(t, ops.Open(&b))

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 8)
	n, err := ops.Write(&b, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, uint32(8), clock.RateHz())

	require.NoError(t, ops.Close(&b))
	require.Equal(t, uint32(defaultRTCRate), clock.RateHz())
}

func TestRTCWriteRejectsNonPowerOfTwo(t *testing.T) {
	clock := hal.NewSimpleRTC()
	ops := NewRTCOps(clock)
	var fd FileDescriptor
	require.NoError(t, ops.Open(&fd))

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 3)
	_, err := ops.Write(&fd, buf)
	require.Error(t, err)
}

func TestRTCReadBlocksUntilTick(t *testing.T) {
	clock := hal.NewSimpleRTC()
	ops := NewRTCOps(clock)
	var fd FileDescriptor
	require.NoError(t, ops.Open(&fd))

	done := make(chan struct{})
	go func() {
		_, _ = ops.Read(&fd, nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("read returned before any tick was delivered")
	case <-time.After(20 * time.Millisecond):
	}

	ops.Tick()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read did not unblock after a tick")
	}
}

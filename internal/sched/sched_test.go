package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduleSkipsIdleTasksWithoutStarvingActiveOnes(t *testing.T) {
	q := NewQueue()
	a := &Task{PID: 1, State: Active}
	b := &Task{PID: 2, State: Idle}
	c := &Task{PID: 3, State: Active}
	// a is the running task, so it sits at the tail where its own
	// selection rotated it.
	q.Add(b)
	q.Add(c)
	q.Add(a)

	s := NewScheduler(q)
	s.SetCurrent(a)

	r := s.Schedule()
	require.True(t, r.Switched)
	require.Equal(t, int32(3), r.To.PID, "b is idle and must be skipped in favor of c")
}

func TestScheduleReturnsNoSwitchWhenOnlyCurrentIsActive(t *testing.T) {
	q := NewQueue()
	a := &Task{PID: 1, State: Active}
	b := &Task{PID: 2, State: Idle}
	q.Add(a)
	q.Add(b)

	s := NewScheduler(q)
	s.SetCurrent(a)

	r := s.Schedule()
	require.False(t, r.Switched)
}

func TestScheduleReturnsNoSwitchWhenQueueEmpty(t *testing.T) {
	s := NewScheduler(NewQueue())
	r := s.Schedule()
	require.False(t, r.Switched)
	require.Nil(t, r.To)
}

func TestRemoveDropsTaskFromRotation(t *testing.T) {
	q := NewQueue()
	a := &Task{PID: 1, State: Active}
	b := &Task{PID: 2, State: Active}
	q.Add(a)
	q.Add(b)
	q.Remove(1)
	require.Equal(t, 1, q.NumTasks())

	s := NewScheduler(q)
	s.SetCurrent(b)
	r := s.Schedule()
	require.False(t, r.Switched, "only task left is current, nothing else to switch to")
}

func TestEachActiveTaskSelectedWithinOneFullRotation(t *testing.T) {
	q := NewQueue()
	tasks := []*Task{
		{PID: 1, State: Active},
		{PID: 2, State: Active},
		{PID: 3, State: Active},
	}
	for _, t := range tasks {
		q.Add(t)
	}
	s := NewScheduler(q)
	// The running task sits at the tail, where its own selection
	// rotated it.
	s.SetCurrent(tasks[len(tasks)-1])

	seen := map[int32]bool{tasks[len(tasks)-1].PID: true}
	for i := 0; i < len(tasks)-1; i++ {
		r := s.Schedule()
		require.True(t, r.Switched)
		seen[r.To.PID] = true
	}
	require.Len(t, seen, 3)
}

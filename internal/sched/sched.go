// Package sched implements the run queue and round-robin scheduler
// described in spec.md §4.4 (component C4), grounded on
// original_source/student-distrib/task.c's task_queue_t rotation
// (schedule(), next_task, task_queue_t at task.c:446,399,17) and
// pit.c's timer-driven call into it, adapted to the
// mutex-guarded-state-machine idiom this core reuses throughout.
//
// There is no real ring-3/IRET hardware underneath a hosted Go
// process, so task_switch's "synthesize an interrupt frame and IRET"
// step is represented here only as data: Schedule reports which task
// becomes current and nothing more. It does not report whether that is
// the task's first run, and no entry or resume frame is built for it.
package sched

import (
	"sync"

	"github.com/aerohand/xios/internal/process"
)

// State is a task's scheduling state. Anything other than Active is
// skipped by Schedule without starving the rest of the queue, per
// spec.md §4.4's ordering guarantee.
type State int

const (
	Active State = iota
	Idle
	Terminated
)

// Task is the run-queue's node. A *Task is stashed on its PCB via
// process.Process.SetSchedNode so the two can find each other without
// an import cycle.
type Task struct {
	PID     int32
	Process *process.Process
	State   State
	// HasRun is the slot for task_switch's "entering its program for
	// the first time" versus "resuming mid-flight" distinction
	// (spec.md §4.4). Schedule neither sets nor reads it.
	HasRun bool
}

// Queue is the circular run queue: a plain slice used as a ring,
// mirroring task_queue_t's head/tail/num_tasks bookkeeping without
// needing real linked-list nodes.
type Queue struct {
	mu    sync.Mutex
	tasks []*Task
}

func NewQueue() *Queue { return &Queue{} }

// Add appends t to the tail, the insertion point for a freshly
// execute'd process.
func (q *Queue) Add(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

// Remove drops pid's task entirely, used by halt to free its run-queue
// entry.
func (q *Queue) Remove(pid int32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.PID == pid {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return
		}
	}
}

func (q *Queue) NumTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// SetState updates pid's scheduling state, used to idle a process
// across execute or to block/unblock it around a blocking read.
func (q *Queue) SetState(pid int32, s State) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.PID == pid {
			t.State = s
			return
		}
	}
}

// rotateOnce pops the head and pushes it to the tail, returning that
// node — step 2 of spec.md §4.4's schedule() algorithm.
func (q *Queue) rotateOnce() *Task {
	if len(q.tasks) == 0 {
		return nil
	}
	head := q.tasks[0]
	q.tasks = append(q.tasks[1:], head)
	return head
}

// Scheduler drives schedule(), tracking the currently running task.
type Scheduler struct {
	queue   *Queue
	current *Task
}

func NewScheduler(q *Queue) *Scheduler { return &Scheduler{queue: q} }

func (s *Scheduler) Current() *Task { return s.current }

// SetCurrent forces the current task without rotating the queue. The
// task keeps its queue position, so a current task at the head is the
// first candidate the next Schedule call rotates (and, being current,
// ends that call without a switch).
func (s *Scheduler) SetCurrent(t *Task) { s.current = t }

// Result reports what Schedule decided.
type Result struct {
	From     *Task
	To       *Task
	Switched bool
}

// Schedule implements spec.md §4.4's five-step algorithm exactly. The
// queue's length bound is read once at the top of the call (an
// explicit design decision, SPEC_FULL.md §Open Questions): a task
// added mid-rotation by a concurrent Add is not considered for this
// call.
func (s *Scheduler) Schedule() Result {
	s.queue.mu.Lock()
	n := len(s.queue.tasks)
	s.queue.mu.Unlock()

	from := s.current
	if n == 0 {
		return Result{From: from}
	}

	var candidate *Task
	for i := 0; i < n; i++ {
		s.queue.mu.Lock()
		c := s.queue.rotateOnce()
		active := c != nil && c.State == Active
		s.queue.mu.Unlock()
		if active {
			candidate = c
			break
		}
	}
	if candidate == nil || candidate == from {
		return Result{From: from}
	}

	s.current = candidate
	return Result{From: from, To: candidate, Switched: true}
}

package jobs

import (
	"slices"
	"sync"
)

// noIndex marks a Job that has not been part of a listing yet.
const noIndex = -1

// Job is one background command.
type Job struct {
	Index int    // display index from the most recent Render, or -1
	Name  string // command name, used for display only
	Pid   int    // process identity used for signalling and waiting
}

// entry is a Job together with every process still running on its behalf.
// A pipeline is one Job whose live set holds both stages.
type entry struct {
	Job
	live []int
}

// Table is an ordered registry of background Jobs, most recently added first.
// The zero value is not usable; create one with NewTable.
type Table struct {
	// NOTE: entries is stored oldest first so that adding a job is an append.
	// Every exported view walks it backwards.
	entries  []entry
	capacity int

	mu sync.Mutex
}

// NewTable creates an empty Table holding at most capacity jobs. A capacity
// of zero or less means the Table is unbounded.
func NewTable(capacity int) *Table {
	return &Table{capacity: capacity}
}

// Insert adds a job to the front of the Table. The job is known by pid;
// stages are the other processes belonging to it, and the job stays in the
// Table until every one of them has been removed.
//
// A job already holding one of the pids is replaced, so a pid is never listed
// twice. Insert returns ErrOutOfMemory when the Table is full.
func (t *Table) Insert(name string, pid int, stages ...int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := append([]int{pid}, stages...)

	replaced := false
	for _, p := range live {
		if i := t.find(p); i >= 0 {
			t.entries = slices.Delete(t.entries, i, i+1)
			replaced = true
		}
	}

	if !replaced && t.capacity > 0 && len(t.entries) >= t.capacity {
		return ErrOutOfMemory
	}

	t.entries = append(t.entries, entry{
		Job:  Job{Index: noIndex, Name: name, Pid: pid},
		live: live,
	})

	return nil
}

// Remove forgets the process pid. The job it belongs to leaves the Table once
// none of its processes is left. Remove reports whether pid belonged to a
// job; removing an absent pid is not an error.
func (t *Table) Remove(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(pid)
	if i < 0 {
		return false
	}

	e := &t.entries[i]
	e.live = slices.DeleteFunc(e.live, func(p int) bool { return p == pid })

	if len(e.live) == 0 {
		t.entries = slices.Delete(t.entries, i, i+1)
	}

	return true
}

// TakeByIndex removes the job shown at display index idx by the most recent
// Render and returns the pids of its processes still running.
func (t *Table) TakeByIndex(idx int) ([]int, bool) {
	if idx < 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.Index == idx {
			t.entries = slices.Delete(t.entries, i, i+1)
			return e.live, true
		}
	}

	return nil, false
}

// Render assigns fresh display indices, starting at 0 for the most recently
// added job, and returns a copy of the Table in display order.
func (t *Table) Render() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	rendered := make([]Job, 0, len(t.entries))

	for i := len(t.entries) - 1; i >= 0; i-- {
		t.entries[i].Index = len(rendered)
		rendered = append(rendered, t.entries[i].Job)
	}

	return rendered
}

// DrainAll empties the Table and returns the pids of every process it
// tracked, in display order.
func (t *Table) DrainAll() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pids := make([]int, 0, len(t.entries))
	for i := len(t.entries) - 1; i >= 0; i-- {
		pids = append(pids, t.entries[i].live...)
	}

	t.entries = nil

	return pids
}

// Len returns the number of jobs in the Table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Indices returns the display indices that TakeByIndex would currently
// accept, in display order. It does not re-render the Table.
func (t *Table) Indices() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var indices []int
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Index != noIndex {
			indices = append(indices, t.entries[i].Index)
		}
	}

	return indices
}

// find returns the position of the job pid belongs to, or -1.
func (t *Table) find(pid int) int {
	for i, e := range t.entries {
		if slices.Contains(e.live, pid) {
			return i
		}
	}
	return -1
}

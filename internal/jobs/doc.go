// Package jobs keeps track of commands running in the background.
//
// A Table is the single registry of background jobs for a shell session. It
// is mutated from the interactive loop (launching, fg, jobs, exit) and from
// the reaper goroutine that collects terminated children, so every operation
// is serialised by the Table's own mutex.
//
// Control implements the job-control builtins on top of a Table.
package jobs

// Package external starts the external commands run by the jobash shell,
// either alone or as a two-stage pipeline, in the foreground or in the
// background. Every child goes through a Supervisor, which also reaps them
// and handles interrupts.
package external

import (
	"log/slog"
	"os"
)

// Registry is the part of the job table the launcher needs. A job is known
// by pid and stays registered until pid and all of stages have terminated.
type Registry interface {
	Insert(name string, pid int, stages ...int) error
}

// Streams are the standard streams a child inherits. The launcher does not
// know about redirection: the shell swaps Stdout for the target file before
// launching and restores it afterwards.
type Streams struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// StandardStreams returns the shell's own standard streams.
func StandardStreams() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Launcher runs commands through a Supervisor and records background ones in
// a Registry.
type Launcher struct {
	supervisor *Supervisor
	registry   Registry
	logger     *slog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(supervisor *Supervisor, registry Registry, logger *slog.Logger) *Launcher {
	return &Launcher{
		supervisor: supervisor,
		registry:   registry,
		logger:     logger,
	}
}

// Launch runs args[0] with args in a new process. In the foreground it blocks
// until the process terminates; in the background it registers the process
// as a job and returns immediately.
//
// A command that cannot be executed is reported on the stderr stream and is
// not returned as an error. Launch returns jobs.ErrOutOfMemory if the job
// could not be registered (the process is killed), and a *SpawnError if no
// process could be created.
func (l *Launcher) Launch(args []string, background bool, streams Streams) error {
	if len(args) == 0 {
		return nil
	}

	var register func([]int) error
	if background {
		register = func(pids []int) error {
			return l.registry.Insert(args[0], pids[0])
		}
	}

	pids, err := l.supervisor.Spawn([]Child{{
		Args:   args,
		Stdin:  streams.Stdin,
		Stdout: streams.Stdout,
		Stderr: streams.Stderr,
	}}, register)
	if err != nil {
		return err
	}

	if background {
		l.logger.Info("background job started", "command", args[0], "pid", pids[0])
		return nil
	}

	l.supervisor.WaitForeground(pids...)

	return nil
}

package external

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"sync"

	"golang.org/x/sys/unix"
)

// Remover is the part of the job table the reaper needs.
type Remover interface {
	Remove(pid int) bool
}

// Child describes one child process to start.
type Child struct {
	Args   []string
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Supervisor owns every child process of the shell. It starts them, reaps
// them when they terminate and kills the foreground ones on interrupt.
//
// The Supervisor is the only caller of wait in the process: it reaps with
// wait4(-1), so nothing else in the shell may use exec.Cmd.Wait or similar.
type Supervisor struct {
	table    Remover
	logger   *slog.Logger
	shellPid int
	kill     func(pid int, sig unix.Signal) error

	// mu is held while a child is started, tracked and registered, and while
	// terminated children are reaped, so a child can never be reaped before
	// it is tracked.
	mu       sync.Mutex
	children map[int]chan struct{}

	fgMu       sync.Mutex
	foreground []int

	// One channel per signal: a pending SIGINT must never stand in for a
	// SIGCHLD.
	childCh     chan os.Signal
	interruptCh chan os.Signal
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSignaller replaces the function used to kill foreground children.
func WithSignaller(kill func(pid int, sig unix.Signal) error) SupervisorOption {
	return func(s *Supervisor) {
		s.kill = kill
	}
}

// NewSupervisor creates a Supervisor that removes reaped children from
// table. Call Start before spawning anything.
func NewSupervisor(table Remover, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		table:    table,
		logger:   logger,
		shellPid: os.Getpid(),
		kill:     unix.Kill,
		children:    make(map[int]chan struct{}),
		childCh:     make(chan os.Signal, 1),
		interruptCh: make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start subscribes to SIGCHLD and SIGINT and starts the goroutine handling
// them.
func (s *Supervisor) Start() {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	signal.Notify(s.childCh, unix.SIGCHLD)
	signal.Notify(s.interruptCh, os.Interrupt)

	go s.handleSignals()
}

// Stop unsubscribes from signals and waits for the handling goroutine to
// return. Children that are still running are left alone. Stopping a
// Supervisor that was not started does nothing.
func (s *Supervisor) Stop() {
	if s.stopCh == nil {
		return
	}

	signal.Stop(s.childCh)
	signal.Stop(s.interruptCh)
	close(s.stopCh)
	<-s.doneCh

	s.stopCh = nil
}

// handleSignals reaps on SIGCHLD and interrupts the foreground on SIGINT
// until Stop is called.
func (s *Supervisor) handleSignals() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.childCh:
			s.Reap()
		case <-s.interruptCh:
			s.Interrupt()
		}
	}
}

// Spawn starts one process per Child and returns their pids, in order. A
// child whose command cannot be executed is reported on its stderr and gets a
// pid of 0; the others are still started.
//
// If register is not nil and at least one child started, it is called with
// the pids before any of them can be reaped. When register fails every
// started child is killed and its error is returned.
//
// A *SpawnError is returned when a process could not be created at all.
func (s *Supervisor) Spawn(procs []Child, register func(pids []int) error) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pids := make([]int, len(procs))

	for i, child := range procs {
		pid, err := s.start(child)
		if err != nil {
			var spawnErr *SpawnError
			if errors.As(err, &spawnErr) {
				s.killAll(pids)
				return pids, err
			}

			s.logger.Debug("failed to execute command", "command", child.Args[0], "error", err)
			reportError(child.Stderr, err)

			continue
		}

		pids[i] = pid
	}

	if register == nil || !slices.ContainsFunc(pids, func(pid int) bool { return pid != 0 }) {
		return pids, nil
	}

	if err := register(pids); err != nil {
		s.logger.Warn("failed to register job, killing it", "pids", pids, "error", err)
		s.killAll(pids)
		return pids, err
	}

	return pids, nil
}

// start resolves and starts one child and tracks it for the reaper. The
// caller holds s.mu.
func (s *Supervisor) start(child Child) (int, error) {
	path, err := exec.LookPath(child.Args[0])
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, errCommandNotFound
		}
		return 0, err
	}

	proc, err := os.StartProcess(path, child.Args, &os.ProcAttr{
		Files: []*os.File{child.Stdin, child.Stdout, child.Stderr},
	})
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOMEM) {
			return 0, &SpawnError{Op: "fork", Err: err}
		}
		return 0, err
	}

	pid := proc.Pid

	// The reaper waits by pid, the handle is not needed.
	_ = proc.Release()

	s.children[pid] = make(chan struct{})

	s.logger.Debug("started child", "pid", pid, "args", child.Args)

	return pid, nil
}

// killAll sends SIGKILL to every started child in pids.
func (s *Supervisor) killAll(pids []int) {
	for _, pid := range pids {
		if pid == 0 {
			continue
		}
		if err := s.kill(pid, unix.SIGKILL); err != nil {
			s.logger.Warn("failed to kill child", "pid", pid, "error", err)
		}
	}
}

// Reap collects every child that has terminated, without blocking, and
// removes each of them from the job table. Calling it when no child has
// terminated does nothing.
func (s *Supervisor) Reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		var status unix.WaitStatus

		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}

		if done, ok := s.children[pid]; ok {
			close(done)
			delete(s.children, pid)
		}

		removed := s.table.Remove(pid)

		s.logger.Debug("reaped child", "pid", pid, "status", status.ExitStatus(), "job", removed)
	}
}

// WaitForeground makes pids the foreground unit and blocks until each of
// them has been reaped. Pids that are not children of the shell, or that
// were reaped already, do not block.
func (s *Supervisor) WaitForeground(pids ...int) {
	s.fgMu.Lock()
	s.foreground = slices.DeleteFunc(slices.Clone(pids), func(pid int) bool { return pid == 0 })
	s.fgMu.Unlock()

	defer func() {
		s.fgMu.Lock()
		s.foreground = nil
		s.fgMu.Unlock()
	}()

	for _, pid := range pids {
		s.mu.Lock()
		done, ok := s.children[pid]
		s.mu.Unlock()

		if ok {
			<-done
		}
	}
}

// Interrupt kills the current foreground children. The shell itself is never
// killed this way, and background jobs are not affected.
func (s *Supervisor) Interrupt() {
	s.fgMu.Lock()
	defer s.fgMu.Unlock()

	for _, pid := range s.foreground {
		if pid == s.shellPid {
			continue
		}

		s.logger.Debug("interrupting foreground child", "pid", pid)

		if err := s.kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			s.logger.Warn("failed to interrupt child", "pid", pid, "error", err)
		}
	}
}

// reportError prints err in the shell's error format, without a trailing
// newline. Exec failures are reduced to the underlying OS error.
func reportError(w io.Writer, err error) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		err = errno
	}

	fmt.Fprintf(w, "Error: %v", err)
}

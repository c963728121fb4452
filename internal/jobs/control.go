package jobs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

const (
	jobsHeader    = "\nCurrent running jobs:\n[#] cmd\t\tpid\n-----------------------"
	jobsRowFormat = "\n[%d] %s\t%d"
)

// Waiter blocks the shell on processes brought to the foreground.
type Waiter interface {
	// WaitForeground marks pids as the foreground unit and blocks until all
	// of them have terminated.
	WaitForeground(pids ...int)
}

// Control implements the job-control builtins jobs, fg and exit.
type Control struct {
	table  *Table
	waiter Waiter
	logger *slog.Logger

	kill func(pid int, sig unix.Signal) error
	exit func(code int)
}

// ControlOption configures a Control.
type ControlOption func(*Control)

// WithKill replaces the function used to signal the process group on exit.
func WithKill(kill func(pid int, sig unix.Signal) error) ControlOption {
	return func(c *Control) {
		c.kill = kill
	}
}

// WithExit replaces the function that terminates the shell.
func WithExit(exit func(code int)) ControlOption {
	return func(c *Control) {
		c.exit = exit
	}
}

// NewControl creates a Control operating on table and waiting through
// waiter.
func NewControl(table *Table, waiter Waiter, logger *slog.Logger, opts ...ControlOption) *Control {
	c := &Control{
		table:  table,
		waiter: waiter,
		logger: logger,
		kill:   unix.Kill,
		exit:   os.Exit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Jobs writes the job listing to w. Rendering re-indexes the Table, so fg
// must use an index from the most recent listing.
func (c *Control) Jobs(w io.Writer) error {
	if _, err := fmt.Fprint(w, jobsHeader); err != nil {
		return fmt.Errorf("jobs: write operation failed: %w", err)
	}

	for _, job := range c.table.Render() {
		if _, err := fmt.Fprintf(w, jobsRowFormat, job.Index, job.Name, job.Pid); err != nil {
			return fmt.Errorf("jobs: write operation failed: %w", err)
		}
	}

	return nil
}

// Fg removes the job at display index idx from the Table and blocks until
// all of its processes terminate. It returns ErrNoSuchJob without blocking if
// the index is not in the current listing.
func (c *Control) Fg(idx int) error {
	pids, ok := c.table.TakeByIndex(idx)
	if !ok {
		return ErrNoSuchJob
	}

	c.logger.Debug("job brought to foreground", "index", idx, "pids", pids)

	c.waiter.WaitForeground(pids...)

	return nil
}

// Exit drains the Table, sends SIGTERM to every process in the shell's
// process group and terminates the shell. The shell ignores SIGTERM from that
// point on so that it exits through the exit function rather than the
// signal.
func (c *Control) Exit() {
	pids := c.table.DrainAll()

	c.logger.Info("exiting", "background_jobs", pids)

	signal.Ignore(unix.SIGTERM)

	if err := c.kill(0, unix.SIGTERM); err != nil {
		c.logger.Warn("failed to signal process group", "error", err)
	}

	c.exit(0)
}

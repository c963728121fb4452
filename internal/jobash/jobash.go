// Package jobash contains the interactive shell loop of the jobash project.
// It wires together configuration, logging, the readline-based terminal,
// builtin commands, job control and the launching of external commands.
package jobash

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/sys/unix"

	"Jobash/internal/builtin"
	"Jobash/internal/completer"
	"Jobash/internal/config"
	"Jobash/internal/external"
	"Jobash/internal/jobs"
	"Jobash/internal/logging"
	"Jobash/internal/painter"
	"Jobash/internal/parser"
	"Jobash/internal/prompt"
)

// Options are the command-line settings of the shell.
type Options struct {
	ConfigPath string // explicit config file, searched for when empty
	Debug      bool   // force debug logging
}

// Shell holds the runtime state of the interactive shell: the job table and
// the components sharing it, the terminal, and the standard streams commands
// inherit.
type Shell struct {
	cfg    *config.Config
	logger *slog.Logger

	table      *jobs.Table
	supervisor *external.Supervisor
	launcher   *external.Launcher
	control    *jobs.Control

	streams   external.Streams
	terminal  *readline.Instance
	completer *completer.Completer
	painter   painter.Painter

	closers []io.Closer
}

// Run boots the shell and reads, parses and executes lines until the user
// exits or input ends. Both end the process through the exit builtin, so Run
// only returns if the shell could not start or the terminal failed.
func Run(opts Options) error {
	shell, err := boot(opts)
	if err != nil {
		return err
	}

	for {
		fmt.Fprintln(shell.streams.Stdout)

		shell.completer.Update()
		shell.terminal.SetPrompt(prompt.Update(shell.painter, shell.cfg.Prompt.Symbol))

		line, err := shell.terminal.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				shell.control.Exit()
			}
			shell.shutdown()
			return fmt.Errorf("jobash: failed to read line: %w", err)
		}

		shell.reportErrors(shell.runLine(line))
	}
}

// boot initializes the shell runtime. It loads configuration (falling back
// to defaults on error), sets up logging and the job-control components,
// creates the readline terminal and starts the supervisor.
func boot(opts Options) (*Shell, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	logger, logCloser, err := logging.New(cfg.Log, opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("jobash: boot: %w", err)
	}

	var shell *Shell

	shell = newShell(cfg, logger, external.StandardStreams(), jobs.WithExit(func(code int) {
		shell.terminate(code)
	}))
	shell.closers = append(shell.closers, logCloser)

	shell.completer = completer.NewCompleter(shell.table)
	shell.painter = painter.NewPainter(cfg.Prompt)

	terminal, err := readline.NewEx(&readline.Config{
		HistoryFile:     cfg.Terminal.HistoryFile,
		HistoryLimit:    cfg.Terminal.HistoryLimit,
		InterruptPrompt: cfg.Terminal.InterruptPrompt,
		EOFPrompt:       cfg.Terminal.EOFPrompt,
		AutoComplete:    shell.completer,
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("jobash: boot: failed to create new terminal instance: %w", err)
	}

	shell.terminal = terminal
	shell.closers = append(shell.closers, terminal)

	signal.Ignore(unix.SIGTSTP)
	shell.supervisor.Start()

	logger.Info("shell started", "max_jobs", cfg.Jobs.MaxJobs)

	return shell, nil
}

// newShell creates the job table and the components operating on it. The
// supervisor is not started.
func newShell(cfg *config.Config, logger *slog.Logger, streams external.Streams, opts ...jobs.ControlOption) *Shell {
	table := jobs.NewTable(cfg.Jobs.MaxJobs)
	supervisor := external.NewSupervisor(table, logger)

	return &Shell{
		cfg:        cfg,
		logger:     logger,
		table:      table,
		supervisor: supervisor,
		launcher:   external.NewLauncher(supervisor, table, logger),
		control:    jobs.NewControl(table, supervisor, logger, opts...),
		streams:    streams,
	}
}

// runLine parses and executes one line of input. Output redirection is set
// up here, around the command, so builtins and launched commands inherit it
// the same way.
func (shell *Shell) runLine(line string) error {
	cmd, err := parser.Parse(line)
	if err != nil {
		return err
	}

	if len(cmd.Args) == 0 {
		return nil
	}

	streams := shell.streams

	if cmd.Redirect {
		target, err := cmd.OpenTarget()
		if err != nil {
			return err
		}
		defer target.Close()

		streams.Stdout = target
	}

	if cmd.Background && shell.cfg.Jobs.BackgroundStdinNull {
		devNull, err := os.Open(os.DevNull)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
		}
		defer devNull.Close()

		streams.Stdin = devNull
	}

	return shell.execute(cmd, streams)
}

// execute dispatches cmd with streams. A pipeline is always launched, even
// when it starts with a builtin; otherwise job control and builtins take
// precedence over external commands.
func (shell *Shell) execute(cmd *parser.Command, streams external.Streams) error {
	name := cmd.Args[0]

	switch {
	case cmd.Pipe:
		return shell.launcher.LaunchPipe(cmd.Args, cmd.Background, streams)
	case name == "exit":
		shell.control.Exit()
		return nil
	case name == "jobs":
		return shell.control.Jobs(streams.Stdout)
	case name == "fg":
		if len(cmd.Args) < 2 {
			return jobs.ErrNoSuchJob
		}
		idx, err := strconv.Atoi(cmd.Args[1])
		if err != nil {
			return jobs.ErrNoSuchJob
		}
		return shell.control.Fg(idx)
	case builtin.Is(name):
		return builtin.Execute(cmd.Args, streams.Stdout)
	default:
		return shell.launcher.Launch(cmd.Args, cmd.Background, streams)
	}
}

// reportErrors prints err, if any, as "Error: <message>" without a trailing
// newline. A failure to create processes is fatal and ends the shell.
func (shell *Shell) reportErrors(err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(shell.streams.Stderr, "Error: %s", strings.TrimSpace(err.Error()))

	var spawnErr *external.SpawnError
	if errors.As(err, &spawnErr) {
		shell.logger.Error("cannot create processes, exiting", "error", err)
		shell.terminate(1)
	}
}

// terminate releases the terminal and log file and exits with code.
func (shell *Shell) terminate(code int) {
	shell.shutdown()
	os.Exit(code)
}

// shutdown stops the supervisor and closes the terminal and log file.
func (shell *Shell) shutdown() {
	shell.supervisor.Stop()

	for i := len(shell.closers) - 1; i >= 0; i-- {
		_ = shell.closers[i].Close()
	}
}

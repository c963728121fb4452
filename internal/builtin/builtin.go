// Package builtin implements the stateless builtin commands of the jobash
// shell: cd, pwd, echo, kill and ps. The job-control builtins (fg, jobs and
// exit) live in package jobs because they operate on the job table.
package builtin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"
)

var names = map[string]struct{}{
	"cd":   {},
	"pwd":  {},
	"echo": {},
	"kill": {},
	"ps":   {},
}

// Is reports whether name is a builtin handled by Execute.
func Is(name string) bool {
	_, ok := names[name]
	return ok
}

// Names returns the names of the builtins handled by Execute.
func Names() []string {
	list := make([]string, 0, len(names))
	for name := range names {
		list = append(list, name)
	}
	return list
}

// Execute runs the builtin named by command[0], writing its output to
// writer. Like the rest of the shell's output, echo and pwd do not end their
// output with a newline; the prompt starts on a fresh line.
func Execute(command []string, writer io.Writer) error {
	switch command[0] {
	case "cd":
		return changeDirectory(command)
	case "pwd":
		return printWorkingDirectory(writer)
	case "echo":
		return echo(command, writer)
	case "kill":
		return kill(command)
	case "ps":
		return processStatus(writer)
	}

	return fmt.Errorf("%s: not a builtin", command[0])
}

// changeDirectory changes the working directory to command[1], or to the
// home directory when no argument or "~" is given.
func changeDirectory(command []string) error {
	var dir string

	switch {
	case len(command) > 2:
		return errors.New("cd: too many arguments")
	case len(command) == 1 || command[1] == "~":
		dir = os.Getenv("HOME")
	default:
		dir = command[1]
	}

	if err := os.Chdir(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cd: %s: no such file or directory", dir)
		}
		return fmt.Errorf("cd: %w", err)
	}

	return nil
}

// printWorkingDirectory writes the current working directory to writer.
func printWorkingDirectory(writer io.Writer) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pwd: failed to get absolute path name: %w", err)
	}
	if _, err := fmt.Fprint(writer, dir); err != nil {
		return fmt.Errorf("pwd: write operation failed: %w", err)
	}
	return nil
}

// echo writes its arguments to writer, separated by single spaces.
func echo(command []string, writer io.Writer) error {
	if _, err := fmt.Fprint(writer, strings.Join(command[1:], " ")); err != nil {
		return fmt.Errorf("echo: write operation failed: %w", err)
	}
	return nil
}

// kill sends SIGTERM to the process whose pid is command[1].
func kill(command []string) error {
	if len(command) < 2 {
		return errors.New("kill: usage: kill pid")
	}

	pid, err := strconv.Atoi(command[1])
	if err != nil || pid <= 0 {
		return fmt.Errorf("kill: %s: arguments must be process IDs", command[1])
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("kill: (%d) - %w", pid, err)
	}

	return nil
}

// processStatus lists the shell and its direct children.
func processStatus(writer io.Writer) error {
	processes, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("ps: failed to get process list: %w", err)
	}

	shellPid := os.Getpid()

	if _, err := fmt.Fprintf(writer, "%7s %7s CMD", "PID", "PPID"); err != nil {
		return fmt.Errorf("ps: write operation failed: %w", err)
	}

	for _, process := range processes {
		if process.Pid() != shellPid && process.PPid() != shellPid {
			continue
		}

		if _, err := fmt.Fprintf(writer, "\n%7d %7d %s", process.Pid(), process.PPid(), process.Executable()); err != nil {
			return fmt.Errorf("ps: write operation failed: %w", err)
		}
	}

	return nil
}

package external

import (
	"os"
	"slices"
)

// PipeMarker separates the two commands of a pipeline.
const PipeMarker = "|"

// SplitPipeline splits args at the pipe marker into the upstream and
// downstream commands. It returns ErrMalformedPipeline if there is no marker,
// more than one, or an empty command on either side.
func SplitPipeline(args []string) ([]string, []string, error) {
	i := slices.Index(args, PipeMarker)
	if i <= 0 || i == len(args)-1 {
		return nil, nil, ErrMalformedPipeline
	}

	first, second := args[:i], args[i+1:]
	if slices.Contains(second, PipeMarker) {
		return nil, nil, ErrMalformedPipeline
	}

	return first, second, nil
}

// LaunchPipe runs the two commands of args connected by a pipe: the first
// command's stdout feeds the second command's stdin.
//
// Both stages are started together, but the pipeline is a single job: in the
// background it is registered under the downstream stage's name and pid (or
// the upstream stage's if the downstream one could not be executed), and it
// stays in the table until both stages have terminated. In the foreground
// LaunchPipe blocks until both stages terminate.
//
// Errors follow Launch. Failing to create the pipe is a *SpawnError.
func (l *Launcher) LaunchPipe(args []string, background bool, streams Streams) error {
	first, second, err := SplitPipeline(args)
	if err != nil {
		return err
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		return &SpawnError{Op: "pipe", Err: err}
	}

	var register func([]int) error
	if background {
		register = func(pids []int) error {
			if pids[1] == 0 {
				return l.registry.Insert(first[0], pids[0])
			}
			if pids[0] == 0 {
				return l.registry.Insert(second[0], pids[1])
			}
			return l.registry.Insert(second[0], pids[1], pids[0])
		}
	}

	pids, err := l.supervisor.Spawn([]Child{
		{Args: first, Stdin: streams.Stdin, Stdout: writer, Stderr: streams.Stderr},
		{Args: second, Stdin: reader, Stdout: streams.Stdout, Stderr: streams.Stderr},
	}, register)

	// The shell never uses the pipe itself. Both ends must be closed here or
	// the downstream stage never sees end of input.
	_ = reader.Close()
	_ = writer.Close()

	if err != nil {
		return err
	}

	if background {
		l.logger.Info("background pipeline started", "commands", []string{first[0], second[0]}, "pids", pids)
		return nil
	}

	l.supervisor.WaitForeground(pids...)

	return nil
}

// Package completer provides tab completion for the jobash shell. Suggestions
// are rebuilt before every prompt from the current directory, the running
// processes and the job table.
package completer

import (
	"os"
	"slices"
	"strconv"

	"github.com/chzyer/readline"
	ps "github.com/mitchellh/go-ps"

	"Jobash/internal/builtin"
)

// JobIndexer reports the display indices fg currently accepts.
type JobIndexer interface {
	Indices() []int
}

// Completer adapts the shell's environment to the readline.AutoCompleter
// interface.
type Completer struct {
	jobs              JobIndexer
	readlineCompleter *readline.PrefixCompleter
}

// NewCompleter returns a Completer suggesting fg indices from jobs. Call
// Update before the first prompt.
func NewCompleter(jobs JobIndexer) *Completer {
	return &Completer{jobs: jobs, readlineCompleter: readline.NewPrefixCompleter()}
}

// Update rebuilds the completion tree: directories for cd, pids for kill,
// job indices for fg and file names for echo and external commands.
func (c *Completer) Update() {
	var dirs, files []readline.PrefixCompleterInterface

	if entries, err := os.ReadDir("."); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, readline.PcItem(entry.Name()+"/"))
				files = append(files, readline.PcItem(entry.Name()+"/"))
			} else {
				files = append(files, readline.PcItem(entry.Name()))
			}
		}
	}

	var pids []readline.PrefixCompleterInterface
	if processes, err := ps.Processes(); err == nil {
		for _, process := range processes {
			pids = append(pids, readline.PcItem(strconv.Itoa(process.Pid())))
		}
	}

	var indices []readline.PrefixCompleterInterface
	for _, idx := range c.jobs.Indices() {
		indices = append(indices, readline.PcItem(strconv.Itoa(idx)))
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem("fg", indices...),
		readline.PcItem("jobs"),
		readline.PcItem("exit"),
	}

	names := builtin.Names()
	slices.Sort(names)

	for _, name := range names {
		switch name {
		case "cd":
			items = append(items, readline.PcItem(name, dirs...))
		case "kill":
			items = append(items, readline.PcItem(name, pids...))
		case "echo":
			items = append(items, readline.PcItem(name, files...))
		default:
			items = append(items, readline.PcItem(name))
		}
	}

	for _, name := range []string{"cat", "ls", "rm", "sort", "wc"} {
		items = append(items, readline.PcItem(name, files...))
	}

	c.readlineCompleter = readline.NewPrefixCompleter(items...)
}

// Do delegates the completion logic to the underlying PrefixCompleter.
// It satisfies the readline.AutoCompleter interface.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	return c.readlineCompleter.Do(line, pos)
}

package external_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"Jobash/internal/external"
	"Jobash/internal/jobs"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func setupTestLauncher(t *testing.T, table *jobs.Table) (*external.Launcher, *external.Supervisor) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	supervisor := external.NewSupervisor(table, logger)
	supervisor.Start()
	t.Cleanup(supervisor.Stop)

	return external.NewLauncher(supervisor, table, logger), supervisor
}

// testStreams returns streams backed by files in a temporary directory, with
// input written to stdin.
func testStreams(t *testing.T, input string) external.Streams {
	t.Helper()

	dir := t.TempDir()

	stdinPath := filepath.Join(dir, "stdin")
	require.NoError(t, os.WriteFile(stdinPath, []byte(input), 0o600))

	stdin, err := os.Open(stdinPath)
	require.NoError(t, err)

	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)

	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)

	t.Cleanup(func() {
		stdin.Close()
		stdout.Close()
		stderr.Close()
	})

	return external.Streams{Stdin: stdin, Stdout: stdout, Stderr: stderr}
}

func readStream(t *testing.T, f *os.File) string {
	t.Helper()

	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)

	return string(b)
}

func killJobs(t *testing.T, table *jobs.Table) {
	t.Helper()

	for _, job := range table.Render() {
		_ = unix.Kill(job.Pid, unix.SIGKILL)
	}

	assert.Eventually(t, func() bool { return table.Len() == 0 }, waitFor, tick)
}

func TestLaunch(t *testing.T) {
	t.Run("Test foreground waits for completion", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)
		streams := testStreams(t, "")

		err := launcher.Launch([]string{"sh", "-c", "sleep 0.2; echo done"}, false, streams)
		require.NoError(t, err)

		assert.Equal(t, "done\n", readStream(t, streams.Stdout))
		assert.Equal(t, 0, table.Len())
	})

	t.Run("Test foreground reads stdin", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))
		streams := testStreams(t, "hello\n")

		require.NoError(t, launcher.Launch([]string{"cat"}, false, streams))

		assert.Equal(t, "hello\n", readStream(t, streams.Stdout))
	})

	t.Run("Test command not found is reported, not returned", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)
		streams := testStreams(t, "")

		err := launcher.Launch([]string{"jobash-no-such-command"}, true, streams)
		require.NoError(t, err)

		assert.Equal(t, "Error: Command not found", readStream(t, streams.Stderr))
		assert.Equal(t, 0, table.Len())
	})

	t.Run("Test exec failure is reported", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))
		streams := testStreams(t, "")

		err := launcher.Launch([]string{t.TempDir()}, false, streams)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(readStream(t, streams.Stderr), "Error: "))
	})

	t.Run("Test background registers job", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)
		streams := testStreams(t, "")

		start := time.Now()
		require.NoError(t, launcher.Launch([]string{"sleep", "30"}, true, streams))
		assert.Less(t, time.Since(start), 5*time.Second)

		rendered := table.Render()
		require.Len(t, rendered, 1)
		assert.Equal(t, "sleep", rendered[0].Name)

		killJobs(t, table)
	})

	t.Run("Test background job is reaped on exit", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)

		require.NoError(t, launcher.Launch([]string{"true"}, true, testStreams(t, "")))

		assert.Eventually(t, func() bool { return table.Len() == 0 }, waitFor, tick)
	})

	t.Run("Test registration failure kills child", func(t *testing.T) {
		table := jobs.NewTable(1)
		require.NoError(t, table.Insert("placeholder", 1<<30))

		launcher, _ := setupTestLauncher(t, table)

		err := launcher.Launch([]string{"sleep", "30"}, true, testStreams(t, ""))
		assert.ErrorIs(t, err, jobs.ErrOutOfMemory)

		assert.Equal(t, []jobs.Job{
			{Index: 0, Name: "placeholder", Pid: 1 << 30},
		}, table.Render())
	})
}

func TestLaunchPipe(t *testing.T) {
	t.Run("Test foreground pipeline", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))
		streams := testStreams(t, "a\nb\nc\n")

		err := launcher.LaunchPipe([]string{"wc", "-l", "|", "sort"}, false, streams)
		require.NoError(t, err)

		assert.Equal(t, "3", strings.TrimSpace(readStream(t, streams.Stdout)))
	})

	t.Run("Test downstream sees end of input", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))
		streams := testStreams(t, "b\na\n")

		done := make(chan error, 1)
		go func() {
			done <- launcher.LaunchPipe([]string{"cat", "|", "sort"}, false, streams)
		}()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("pipeline did not terminate")
		}

		assert.Equal(t, "a\nb\n", readStream(t, streams.Stdout))
	})

	t.Run("Test missing upstream command", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))
		streams := testStreams(t, "")

		err := launcher.LaunchPipe([]string{"jobash-no-such-command", "|", "wc", "-l"}, false, streams)
		require.NoError(t, err)

		assert.Equal(t, "Error: Command not found", readStream(t, streams.Stderr))
		assert.Equal(t, "0", strings.TrimSpace(readStream(t, streams.Stdout)))
	})

	t.Run("Test background pipeline is one job", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)

		err := launcher.LaunchPipe([]string{"true", "|", "sleep", "30"}, true, testStreams(t, ""))
		require.NoError(t, err)

		rendered := table.Render()
		require.Len(t, rendered, 1)
		assert.Equal(t, "sleep", rendered[0].Name)

		killJobs(t, table)
	})

	t.Run("Test background pipeline stays until every stage ends", func(t *testing.T) {
		table := jobs.NewTable(0)
		launcher, _ := setupTestLauncher(t, table)

		err := launcher.LaunchPipe([]string{"sleep", "1", "|", "true"}, true, testStreams(t, ""))
		require.NoError(t, err)

		rendered := table.Render()
		require.Len(t, rendered, 1)
		assert.Equal(t, "true", rendered[0].Name)

		time.Sleep(300 * time.Millisecond)
		assert.Equal(t, 1, table.Len(), "job left the table while sleep was running")

		assert.Eventually(t, func() bool { return table.Len() == 0 }, waitFor, tick)
	})

	t.Run("Test background pipeline registration failure", func(t *testing.T) {
		table := jobs.NewTable(1)
		require.NoError(t, table.Insert("placeholder", 1<<30))

		launcher, _ := setupTestLauncher(t, table)

		err := launcher.LaunchPipe([]string{"sleep", "30", "|", "sleep", "30"}, true, testStreams(t, ""))
		assert.ErrorIs(t, err, jobs.ErrOutOfMemory)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("Test malformed pipeline", func(t *testing.T) {
		launcher, _ := setupTestLauncher(t, jobs.NewTable(0))

		err := launcher.LaunchPipe([]string{"ls", "-l"}, false, testStreams(t, ""))
		assert.ErrorIs(t, err, external.ErrMalformedPipeline)
	})
}

func TestSplitPipeline(t *testing.T) {
	scenarios := map[string]struct {
		args       []string
		wantFirst  []string
		wantSecond []string
		wantErr    error
	}{
		"two commands": {
			args:       []string{"ls", "-l", "|", "wc", "-l"},
			wantFirst:  []string{"ls", "-l"},
			wantSecond: []string{"wc", "-l"},
		},
		"no marker": {
			args:    []string{"ls", "-l"},
			wantErr: external.ErrMalformedPipeline,
		},
		"empty upstream": {
			args:    []string{"|", "wc"},
			wantErr: external.ErrMalformedPipeline,
		},
		"empty downstream": {
			args:    []string{"ls", "|"},
			wantErr: external.ErrMalformedPipeline,
		},
		"three stages": {
			args:    []string{"ls", "|", "sort", "|", "wc"},
			wantErr: external.ErrMalformedPipeline,
		},
		"empty": {
			args:    nil,
			wantErr: external.ErrMalformedPipeline,
		},
	}

	for name, data := range scenarios {
		t.Run(name, func(t *testing.T) {
			first, second, err := external.SplitPipeline(data.args)

			assert.ErrorIs(t, err, data.wantErr)
			assert.Equal(t, data.wantFirst, first)
			assert.Equal(t, data.wantSecond, second)
		})
	}
}

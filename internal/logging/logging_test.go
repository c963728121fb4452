package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Jobash/internal/config"
	"Jobash/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("Test writes to file with session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobash.log")

		logger, closer, err := logging.New(config.Log{File: path, Level: "info"}, false)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown", "pid", 42)
		require.NoError(t, closer.Close())

		got, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.Contains(t, string(got), "msg=shown")
		assert.Contains(t, string(got), "session=")
		assert.NotContains(t, string(got), "hidden")
	})

	t.Run("Test debug flag", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobash.log")

		logger, closer, err := logging.New(config.Log{File: path, Level: "error"}, true)
		require.NoError(t, err)

		logger.Debug("reaped child")
		require.NoError(t, closer.Close())

		got, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.Contains(t, string(got), "level=DEBUG")
	})

	t.Run("Test no file discards", func(t *testing.T) {
		logger, closer, err := logging.New(config.Log{Level: "info"}, false)
		require.NoError(t, err)

		logger.Info("nowhere")
		assert.NoError(t, closer.Close())
	})

	t.Run("Test invalid level", func(t *testing.T) {
		_, _, err := logging.New(config.Log{Level: "loud"}, false)
		assert.ErrorContains(t, err, "invalid log level")
	})
}

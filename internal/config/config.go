// Package config provides functionality for loading shell configuration
// parameters from a config file using the Viper library. It defines terminal
// behaviour, prompt appearance, job table limits and logging settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding config keys, e.g.
// JOBASH_JOBS_MAX_JOBS for jobs.max_jobs.
const EnvPrefix = "JOBASH"

// Config holds all configurable settings for the shell.
type Config struct {
	Terminal Terminal `mapstructure:"terminal"` // Terminal-related settings
	Prompt   Prompt   `mapstructure:"prompt"`   // Prompt appearance settings
	Jobs     Jobs     `mapstructure:"jobs"`     // Job table settings
	Log      Log      `mapstructure:"log"`      // Logging settings
}

// Terminal defines settings related to terminal behaviour, such as history
// file, history limit, and interrupt and exit prompts.
type Terminal struct {
	HistoryFile     string `mapstructure:"history_file"`     // Path to shell history file
	HistoryLimit    int    `mapstructure:"history_limit"`    // Maximum number of history entries
	InterruptPrompt string `mapstructure:"interrupt_prompt"` // Text shown on Ctrl-C at the prompt
	EOFPrompt       string `mapstructure:"exit_message"`     // Text shown on EOF/exit
}

// Prompt defines the prompt symbol and how the working directory in front of
// it is painted.
type Prompt struct {
	Symbol         string `mapstructure:"symbol"`           // Text after the working directory
	Theme          string `mapstructure:"theme"`            // Prompt theme name
	PathColour     string `mapstructure:"path_colour"`      // Colour name for the current path
	PathColourBold bool   `mapstructure:"path_colour_bold"` // Bold style for the path
}

// Jobs defines settings of the background job table.
type Jobs struct {
	MaxJobs             int  `mapstructure:"max_jobs"`              // Table capacity, 0 for unbounded
	BackgroundStdinNull bool `mapstructure:"background_stdin_null"` // Give background jobs /dev/null as stdin
}

// Log defines where debug logs go.
type Log struct {
	File  string `mapstructure:"file"`  // Log file, logs are discarded when empty
	Level string `mapstructure:"level"` // debug, info, warn or error
}

// Load reads configuration from path, or from a file named "config" in the
// current directory or $HOME/.config/jobash when path is empty, and
// unmarshals it into a Config. Keys missing from the file keep their
// defaults, and JOBASH_* environment variables override both. A missing
// config file is not an error. On failure Load returns the defaults and an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "jobash"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Default(), fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg := new(Config)

	if err := v.Unmarshal(cfg); err != nil {
		return Default(), fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible default settings. It is used
// as a fallback when loading a configuration file fails.
func Default() *Config {
	cfg := new(Config)

	cfg.Terminal.HistoryFile = filepath.Join(os.Getenv("HOME"), ".jobash_history")
	cfg.Terminal.HistoryLimit = 1000
	cfg.Terminal.InterruptPrompt = "^C"
	cfg.Terminal.EOFPrompt = "exit"

	cfg.Prompt.Symbol = ">> "
	cfg.Prompt.Theme = "default"
	cfg.Prompt.PathColour = "green"
	cfg.Prompt.PathColourBold = false

	cfg.Jobs.MaxJobs = 0
	cfg.Jobs.BackgroundStdinNull = false

	cfg.Log.File = ""
	cfg.Log.Level = "info"

	return cfg
}

// setDefaults registers every field of cfg as a viper default, so that
// AutomaticEnv can override keys that are absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("terminal.history_file", cfg.Terminal.HistoryFile)
	v.SetDefault("terminal.history_limit", cfg.Terminal.HistoryLimit)
	v.SetDefault("terminal.interrupt_prompt", cfg.Terminal.InterruptPrompt)
	v.SetDefault("terminal.exit_message", cfg.Terminal.EOFPrompt)

	v.SetDefault("prompt.symbol", cfg.Prompt.Symbol)
	v.SetDefault("prompt.theme", cfg.Prompt.Theme)
	v.SetDefault("prompt.path_colour", cfg.Prompt.PathColour)
	v.SetDefault("prompt.path_colour_bold", cfg.Prompt.PathColourBold)

	v.SetDefault("jobs.max_jobs", cfg.Jobs.MaxJobs)
	v.SetDefault("jobs.background_stdin_null", cfg.Jobs.BackgroundStdinNull)

	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.level", cfg.Log.Level)
}

// Package config resolves the run configuration from built-in defaults, an
// optional YAML file, the environment and command-line flags, in that order
// of increasing precedence. Flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/envutil"
	"github.com/dfandrich/testclutch-curl-web/pkg/fileutil"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
	"github.com/goccy/go-yaml"
)

var configLog = logger.New("config:config")

// numCPU is a variable so tests can pin the default worker count.
var numCPU = runtime.NumCPU

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved run configuration.
type Config struct {
	// Journalctl is the export collaborator binary.
	Journalctl string `yaml:"journalctl" json:"journalctl"`
	// Charset is the encoding of journal messages.
	Charset string `yaml:"charset" json:"charset"`
	// Workers bounds concurrent extractions.
	Workers int `yaml:"workers" json:"workers"`
	// MaxDuration is the sanity ceiling on a job, in seconds.
	MaxDuration constants.Seconds `yaml:"max_duration" json:"max_duration"`
	// SessionWindow is the sort bucket width, in days.
	SessionWindow int `yaml:"session_window" json:"session_window"`
	// SuppressUnchangedVersion blanks repeated version values in the output.
	SuppressUnchangedVersion bool `yaml:"suppress_unchanged_version" json:"suppress_unchanged_version"`
	// Patterns classify journal messages. Missing ones use the defaults.
	Patterns matcher.Patterns `yaml:"patterns" json:"patterns"`
}

// Default returns the built-in configuration, equivalent to running with no
// file, no environment and no flags.
func Default() Config {
	return Config{
		Journalctl:               constants.DefaultJournalctl,
		Charset:                  constants.DefaultCharset,
		Workers:                  min(constants.WorkersPerCPU*numCPU(), constants.MaxWorkers),
		MaxDuration:              constants.DefaultMaxDuration,
		SessionWindow:            constants.DefaultSessionWindowDays,
		SuppressUnchangedVersion: true,
		Patterns:                 matcher.DefaultPatterns(),
	}
}

// Window returns SessionWindow as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.SessionWindow) * 24 * time.Hour
}

// Load reads the YAML file at path over the defaults. The file is checked
// against the embedded schema before it is decoded.
func Load(path string) (Config, error) {
	cfg := Default()
	configLog.Printf("Loading config file %s", path)

	if !fileutil.FileExists(path) {
		return cfg, fmt.Errorf("%w: config file %s not found", ErrInvalidConfig, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, fmt.Errorf("%w: %s:\n%s", ErrInvalidConfig, path, yaml.FormatError(err, false, true))
	}
	if err := validateDocument(doc); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s:\n%s", ErrInvalidConfig, path, yaml.FormatError(err, false, true))
	}
	cfg.Patterns = cfg.Patterns.WithDefaults()
	return cfg, nil
}

// ApplyEnv overrides c with the TESTCLUTCH_* environment variables that are
// set. Out-of-range numbers are ignored with a debug message.
func (c Config) ApplyEnv() Config {
	c.Journalctl = envutil.GetStringFromEnv(constants.EnvJournalctl, c.Journalctl)
	c.Charset = envutil.GetStringFromEnv(constants.EnvCharset, c.Charset)
	c.Workers = envutil.GetIntFromEnv(constants.EnvWorkers, c.Workers, 1, constants.MaxWorkers, configLog)
	c.SuppressUnchangedVersion = envutil.GetBoolFromEnv(constants.EnvSuppressUnchangedVersion, c.SuppressUnchangedVersion, configLog)
	return c
}

// Resolve loads the file at path, or the file named by TESTCLUTCH_CONFIG
// when path is empty, then applies the environment. With neither set the
// defaults are used.
func Resolve(path string) (Config, error) {
	if path == "" {
		path = envutil.GetStringFromEnv(constants.EnvConfig, "")
	}
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	return cfg.ApplyEnv(), nil
}

// Validate checks the values that the schema cannot: regular expressions,
// the charset name and the ranges of values set by flags.
func (c Config) Validate() error {
	if c.Journalctl == "" {
		return fmt.Errorf("%w: journalctl command is empty", ErrInvalidConfig)
	}
	if c.Workers < 1 || c.Workers > constants.MaxWorkers {
		return fmt.Errorf("%w: workers must be between 1 and %d, got %d", ErrInvalidConfig, constants.MaxWorkers, c.Workers)
	}
	if c.MaxDuration <= 0 {
		return fmt.Errorf("%w: max_duration must be positive, got %s", ErrInvalidConfig, c.MaxDuration)
	}
	if c.SessionWindow < 1 {
		return fmt.Errorf("%w: session_window must be at least one day, got %d", ErrInvalidConfig, c.SessionWindow)
	}
	if _, err := journal.NewDecoder(c.Charset); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := matcher.Compile(c.Patterns); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

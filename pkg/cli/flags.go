package cli

import (
	"time"

	"github.com/dfandrich/testclutch-curl-web/pkg/config"
	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/spf13/pflag"
)

// Flag names. Kept as constants because overrides are applied only for
// flags the user actually set.
const (
	flagConfig            = "config"
	flagWorkers           = "workers"
	flagTimeout           = "timeout"
	flagNoSuppressVersion = "no-suppress-version"
	flagDump              = "dump"
	flagProgress          = "progress"
	flagVerbose           = "verbose"
)

// addCollectFlags registers the collect flags on fs, bound to opts.
func addCollectFlags(fs *pflag.FlagSet, opts *CollectOptions) {
	fs.StringVar(&opts.ConfigPath, flagConfig, "", "YAML configuration file (default $"+constants.EnvConfig+")")
	fs.IntVarP(&opts.Workers, flagWorkers, "j", 0, "Number of files to extract concurrently (default 2x CPUs)")
	fs.DurationVar(&opts.Timeout, flagTimeout, 0, "Overall deadline for extraction, e.g. 10m (default none)")
	fs.BoolVar(&opts.NoSuppressVersion, flagNoSuppressVersion, false, "Print the version on every record, even when unchanged")
	fs.BoolVar(&opts.Dump, flagDump, false, "After the CSV, list the sorted entries as timestamp<TAB>session<TAB>message")
	fs.BoolVar(&opts.Progress, flagProgress, false, "Show a progress bar while extracting (terminal only)")
	fs.BoolVarP(&opts.Verbose, flagVerbose, "v", false, "Print a run summary to stderr")
}

// applyFlagOverrides copies the values of flags that were set on the command
// line over cfg. Unset flags leave the file and environment values alone.
func applyFlagOverrides(cfg config.Config, fs *pflag.FlagSet, opts CollectOptions) config.Config {
	if fs.Changed(flagWorkers) {
		cfg.Workers = opts.Workers
	}
	if fs.Changed(flagNoSuppressVersion) && opts.NoSuppressVersion {
		cfg.SuppressUnchangedVersion = false
	}
	return cfg
}

// CollectOptions holds the command-line settings of a run that are not part
// of config.Config.
type CollectOptions struct {
	ConfigPath        string
	Workers           int
	Timeout           time.Duration
	NoSuppressVersion bool
	Dump              bool
	Progress          bool
	Verbose           bool
}

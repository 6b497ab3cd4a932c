package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dfandrich/testclutch-curl-web/pkg/collect"
	"github.com/dfandrich/testclutch-curl-web/pkg/config"
	"github.com/dfandrich/testclutch-curl-web/pkg/console"
	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/csvout"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/fileutil"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
	"github.com/dfandrich/testclutch-curl-web/pkg/reconcile"
	"github.com/dfandrich/testclutch-curl-web/pkg/tty"
	"github.com/spf13/cobra"
)

var collectLog = logger.New("cli:collect_command")

// NewRootCommand creates the collect-durations command.
func NewRootCommand() *cobra.Command {
	var opts CollectOptions

	cmd := &cobra.Command{
		Use:     constants.CommandName + " FILE...",
		Short:   "Extract job durations from systemd journal files as CSV",
		Version: GetVersion(),
		Long: `Extract Test Clutch job durations from systemd journal files.

Each FILE is a journal file read through journalctl, a directory of them, or
an export dump captured with "journalctl -o export" (.export, optionally
compressed as .export.gz, .export.zst or .export.lz4).

Matching start and completion messages are paired by audit session and one
CSV line per finished job is written to stdout:

  timestamp,update_duration,update_abort_duration,pr_analysis_duration,version,comment_count

Entries that cannot be paired are reported on stderr and skipped.

Set DEBUG=* (or DEBUG=journal:*,reconcile:*) for debug logging.

Examples:
  ` + constants.CommandName + ` /var/log/journal/*/system.journal > durations.csv
  ` + constants.CommandName + ` -j 4 --timeout 10m /var/log/journal/abc123/
  ` + constants.CommandName + ` --config collect.yaml -v archive.export.zst`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.ConfigPath)
			if err != nil {
				return err
			}
			cfg = applyFlagOverrides(cfg, cmd.Flags(), opts)
			return RunCollect(cmd.Context(), args, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addCollectFlags(cmd.Flags(), &opts)
	return cmd
}

// runStats is what the verbose summary reports.
type runStats struct {
	Files       int
	FailedFiles int
	Records     int
	Filtered    int
	Malformed   int
	Entries     int
	Summary     reconcile.Summary
	Anomalies   map[diag.Category]int
	CSVLines    int
	TimedOut    bool
}

// RunCollect extracts entries from every path, reconciles them and writes
// the CSV to stdout. Anomalies and per-file failures go to stderr and never
// fail the run; only invalid configuration and stdout write errors do.
func RunCollect(ctx context.Context, paths []string, cfg config.Config, opts CollectOptions, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	patterns, err := matcher.Compile(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	decoder, err := journal.NewDecoder(cfg.Charset)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	files, err := fileutil.ExpandInputs(paths, isInputFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, console.FormatWarningMessage("No journal files found"))
	}
	collectLog.Printf("Collecting from %d files: workers=%d charset=%s window=%s", len(files), cfg.Workers, cfg.Charset, cfg.Window())
	if opts.Verbose {
		for _, f := range files {
			fmt.Fprintln(stderr, console.FormatVerboseMessage("Input "+console.FormatFilePath(f)))
		}
		fmt.Fprintln(stderr, console.FormatInfoMessage(fmt.Sprintf("Extracting %d files with %d workers", len(files), cfg.Workers)))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	extractor := journal.NewExtractor(patterns, journal.ExtractorOptions{
		Journalctl: cfg.Journalctl,
		Decoder:    decoder,
		Stderr:     stderr,
	})

	collectOpts := collect.Options{Workers: cfg.Workers}
	var bar *console.ProgressBar
	if opts.Progress && tty.IsStderrTerminal() {
		bar = console.NewProgressBar(stderr, len(files))
		collectOpts.Progress = bar.Update
	}
	results := collect.Run(ctx, extractor, files, collectOpts)
	if bar != nil {
		bar.Finish()
	}

	stats := runStats{Files: len(files)}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stats.TimedOut = true
		fmt.Fprintln(stderr, console.FormatWarningMessage(
			fmt.Sprintf("Timed out after %s; output covers only what was extracted in time", opts.Timeout)))
	}

	diagWriter := diag.NewStderrWriter(stderr)
	for _, r := range results {
		if r.Err != nil {
			stats.FailedFiles++
			fmt.Fprintln(stderr, console.FormatFileError(r.Path, r.Err))
		}
		stats.Records += r.Stats.Records
		stats.Filtered += r.Stats.Filtered
		stats.Malformed += r.Stats.MalformedLines
		for _, a := range r.Invalid {
			diagWriter.Report(a)
		}
	}

	entries := collect.Flatten(results)
	stats.Entries = len(entries)
	reconcile.SortEntries(entries, cfg.Window())

	csvWriter := csvout.NewWriter(stdout)
	reconciler := reconcile.New(patterns, reconcile.Options{
		MaxDuration:              cfg.MaxDuration,
		SuppressUnchangedVersion: cfg.SuppressUnchangedVersion,
	})
	stats.Summary, err = reconciler.Run(entries, csvout.Sink{Writer: csvWriter, Reporter: diagWriter})
	if err != nil {
		return err
	}
	if err := csvWriter.Flush(); err != nil {
		return err
	}
	stats.CSVLines = csvWriter.Written()
	stats.Anomalies = diagWriter.Counts()

	if opts.Dump {
		if err := dumpEntries(stdout, entries); err != nil {
			return err
		}
	}
	if opts.Verbose {
		fmt.Fprint(stderr, renderSummary(stats))
		fmt.Fprintln(stderr, console.FormatSuccessMessage(fmt.Sprintf("Wrote %d CSV lines", stats.CSVLines)))
	}
	return nil
}

// isInputFile selects the files taken from a directory argument.
func isInputFile(name string) bool {
	if fileutil.IsJournalFile(name) {
		return true
	}
	_, ok := journal.DumpCompression(name)
	return ok
}

// dumpEntries lists entries in sorted order, one per line.
func dumpEntries(w io.Writer, entries []journal.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return fmt.Errorf("writing entry dump: %w", err)
		}
	}
	return nil
}

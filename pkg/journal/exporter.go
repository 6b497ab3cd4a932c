package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
)

var exporterLog = logger.New("journal:exporter")

// Exporter runs journalctl in export mode against one journal file at a time.
type Exporter struct {
	// Command is the journalctl binary. Empty means "journalctl" from PATH.
	Command string
	// Stderr receives journalctl's own error output. Nil means os.Stderr.
	Stderr io.Writer
	Parser ExportParser
}

// Args returns the journalctl arguments for path restricted to messages
// matching pattern.
func (x *Exporter) Args(pattern, path string) []string {
	return []string{"-o", "export", "-g", pattern, "--file", path}
}

// Export runs journalctl for path and parses its output. Only a failure to
// start the process is an error. A non-zero exit status is logged and the
// entries read so far are returned, since journalctl exits 1 when nothing
// matches. The process is killed if ctx is cancelled.
func (x *Exporter) Export(ctx context.Context, pattern, path string) (Result, error) {
	command := x.Command
	if command == "" {
		command = constants.DefaultJournalctl
	}
	args := x.Args(pattern, path)
	exporterLog.Printf("Running %s %v", command, args)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = x.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Path: path}, fmt.Errorf("journalctl for %s: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return Result{Path: path}, fmt.Errorf("starting %s for %s: %w", command, path, err)
	}

	res, parseErr := x.Parser.Parse(stdout, path)
	if parseErr != nil {
		exporterLog.Printf("Parse of %s stopped early: %v", path, parseErr)
	}
	// Parse may return before EOF; journalctl blocks on a full pipe until
	// its output is read, so Wait would never return.
	if n, err := io.Copy(io.Discard, stdout); n > 0 || err != nil {
		exporterLog.Printf("Discarded %d unparsed bytes from %s (err=%v)", n, path, err)
	}

	if err := cmd.Wait(); err != nil {
		exporterLog.Printf("%s for %s exited: %v", command, path, err)
	}
	exporterLog.Printf("Extracted %s: records=%d entries=%d invalid=%d",
		path, res.Stats.Records, len(res.Entries), len(res.Invalid))
	return res, nil
}

// Package fileutil provides utility functions for working with input paths.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
)

var fileutilLog = logger.New("fileutil:fileutil")

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsJournalFile reports whether name looks like a journald file, including
// the "~" suffix journald gives files it found dirty.
func IsJournalFile(name string) bool {
	return strings.HasSuffix(name, ".journal") || strings.HasSuffix(name, ".journal~")
}

// ExpandInputs replaces every directory in paths with the files directly
// inside it for which match returns true, in lexical order. Other paths are
// kept as given, whether or not they exist; a missing file is reported later
// by the extractor for that file alone.
func ExpandInputs(paths []string, match func(name string) bool) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !DirExists(p) {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !match(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		slices.Sort(found)
		fileutilLog.Printf("Expanded %s to %d files", p, len(found))
		out = append(out, found...)
	}
	return out, nil
}

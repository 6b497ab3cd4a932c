package journal

import (
	"context"
	"io"

	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
)

// Extractor pulls relevant entries out of one input file. Journal files go
// through journalctl; export dumps are parsed directly with the same message
// filter journalctl would have applied.
type Extractor struct {
	patterns *matcher.Set
	exporter Exporter
	dumps    DumpReader
}

// ExtractorOptions configures NewExtractor.
type ExtractorOptions struct {
	Journalctl string
	Decoder    Decoder
	Stderr     io.Writer
}

// NewExtractor returns an Extractor selecting messages with patterns.
func NewExtractor(patterns *matcher.Set, opts ExtractorOptions) *Extractor {
	dec := opts.Decoder
	if dec == nil {
		dec = UTF8
	}
	return &Extractor{
		patterns: patterns,
		exporter: Exporter{
			Command: opts.Journalctl,
			Stderr:  opts.Stderr,
			Parser:  ExportParser{Decoder: dec},
		},
		dumps: DumpReader{
			Parser: ExportParser{Decoder: dec, Filter: patterns.Relevant},
		},
	}
}

// Extract returns the entries of path. The returned error is non-nil only
// when the file could not be read at all.
func (x *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	if _, ok := DumpCompression(path); ok {
		return x.dumps.Read(ctx, path)
	}
	return x.exporter.Export(ctx, x.patterns.ExtractPattern(), path)
}

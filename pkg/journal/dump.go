package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var dumpLog = logger.New("journal:dump")

// Compression identifies how an export dump file is compressed.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

var dumpSuffixes = []struct {
	suffix      string
	compression Compression
}{
	{".export", CompressionNone},
	{".export.gz", CompressionGzip},
	{".export.zst", CompressionZstd},
	{".export.lz4", CompressionLZ4},
}

// DumpCompression reports whether path names an export dump, as opposed to
// a binary journal file, and how it is compressed.
func DumpCompression(path string) (Compression, bool) {
	lower := strings.ToLower(path)
	for _, s := range dumpSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.compression, true
		}
	}
	return CompressionNone, false
}

// DumpReader reads export-format dumps captured earlier with
// "journalctl -o export", optionally compressed.
type DumpReader struct {
	Parser ExportParser
}

// Read parses the dump at path. The context is checked before opening only;
// reading a local file is not interruptible.
func (d *DumpReader) Read(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Path: path}, err
	}
	compression, _ := DumpCompression(path)
	dumpLog.Printf("Reading dump %s (compression=%s)", path, compression)

	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, compression)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("opening %s dump %s: %w", compression, path, err)
	}
	defer closeFn()

	res, err := d.Parser.Parse(r, path)
	if err != nil {
		return res, err
	}
	dumpLog.Printf("Read %s: records=%d filtered=%d entries=%d invalid=%d",
		path, res.Stats.Records, res.Stats.Filtered, len(res.Entries), len(res.Invalid))
	return res, nil
}

func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

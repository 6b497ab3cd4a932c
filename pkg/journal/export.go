package journal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/stringutil"
)

var exportLog = logger.New("journal:export")

// ErrMalformedField is returned for a binary field frame cut short by the end
// of the stream.
var ErrMalformedField = errors.New("malformed export field")

// maxBinaryField bounds the length prefix of a binary field so a corrupt
// stream cannot make the parser allocate gigabytes.
const maxBinaryField = 64 << 20

// ExportParser reads journal export format:
//
//	FIELD=value\n            text field
//	FIELD\n<le64 size><data>\n binary field, used when data has control characters
//	\n                        end of record
//
// Only __REALTIME_TIMESTAMP, _AUDIT_SESSION and MESSAGE are kept.
type ExportParser struct {
	Decoder Decoder
	// Filter, when set, drops records whose MESSAGE it rejects before they
	// are validated. It reproduces journalctl --grep for dump files.
	Filter func(message string) bool
}

type pendingRecord struct {
	entry  Entry
	fields int
}

func (p *pendingRecord) reset() {
	p.entry = Entry{SessionID: NoSession}
	p.fields = 0
}

// Parse reads records from r until EOF and returns the valid entries and one
// invalid-entry anomaly per record missing its timestamp or session. A final
// record without its terminating blank line is discarded. Reader errors end
// parsing early and are returned with everything parsed so far.
func (ep *ExportParser) Parse(r io.Reader, path string) (Result, error) {
	dec := ep.Decoder
	if dec == nil {
		dec = UTF8
	}
	res := Result{Path: path}
	br := bufio.NewReaderSize(r, 64*1024)

	var rec pendingRecord
	rec.reset()

	for {
		line, err := br.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if rec.fields > 0 {
				exportLog.Printf("%s: discarding unterminated final record (%d fields)", path, rec.fields)
			}
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return res, fmt.Errorf("reading export stream for %s: %w", path, err)
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			ep.finishRecord(&res, &rec)
			rec.reset()
			if err != nil {
				return res, eofOrWrap(err, path)
			}
			continue
		}

		name, value, found := bytes.Cut(trimmed, []byte("="))
		if !found {
			if err != nil {
				// Binary frame header at the very end of the stream.
				res.Stats.MalformedLines++
				return res, eofOrWrap(err, path)
			}
			data, ok, ferr := readBinaryField(br)
			if ferr != nil {
				res.Stats.MalformedLines++
				exportLog.Printf("%s: bad binary field %q: %v", path, stringutil.Truncate(string(trimmed), 40), ferr)
				if errors.Is(ferr, ErrMalformedField) {
					return res, nil
				}
				return res, fmt.Errorf("reading export stream for %s: %w", path, ferr)
			}
			if !ok {
				res.Stats.MalformedLines++
				exportLog.Printf("%s: skipping malformed line %q", path, stringutil.Truncate(string(trimmed), 40))
				continue
			}
			name, value = trimmed, data
		}

		rec.fields++
		ep.setField(&rec.entry, string(name), value, dec)

		if err != nil {
			exportLog.Printf("%s: discarding unterminated final record (%d fields)", path, rec.fields)
			return res, eofOrWrap(err, path)
		}
	}
}

func eofOrWrap(err error, path string) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("reading export stream for %s: %w", path, err)
}

// readBinaryField reads the little-endian length, the data and the trailing
// newline that follow a binary field name. ok is false when the bytes ahead
// are not a plausible frame; they are then left unread so the caller can
// resume at the next line. An error wrapping ErrMalformedField means the frame
// was cut short by the end of the stream.
func readBinaryField(br *bufio.Reader) (data []byte, ok bool, err error) {
	size, err := br.Peek(8)
	if err != nil {
		return nil, false, truncated(err)
	}
	n := binary.LittleEndian.Uint64(size)
	if n > maxBinaryField {
		return nil, false, nil
	}

	frame := 8 + int(n) + 1
	if frame <= br.Size() {
		b, err := br.Peek(frame)
		if err != nil {
			return nil, false, truncated(err)
		}
		if b[frame-1] != '\n' {
			return nil, false, nil
		}
		data = bytes.Clone(b[8 : frame-1])
		_, _ = br.Discard(frame)
		return data, true, nil
	}

	// Larger than the read buffer: the frame has to be consumed to be checked.
	if _, err := br.Discard(8); err != nil {
		return nil, false, truncated(err)
	}
	data = make([]byte, n)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, false, truncated(err)
	}
	nl, err := br.ReadByte()
	if err != nil {
		return nil, false, truncated(err)
	}
	return data, nl == '\n', nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated binary field", ErrMalformedField)
	}
	return err
}

func (ep *ExportParser) setField(e *Entry, name string, value []byte, dec Decoder) {
	switch name {
	case constants.FieldRealtimeTimestamp:
		usec, err := strconv.ParseFloat(string(value), 64)
		if err != nil {
			exportLog.Printf("Unparsable %s=%q", name, value)
			e.Timestamp = 0
			return
		}
		e.Timestamp = constants.Seconds(usec / 1e6)
	case constants.FieldAuditSession:
		sid, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			// journald occasionally drops or garbles this field.
			exportLog.Printf("Unparsable %s=%q", name, value)
			e.SessionID = NoSession
			return
		}
		e.SessionID = sid
	case constants.FieldMessage:
		e.Message = dec.Decode(value)
	}
}

func (ep *ExportParser) finishRecord(res *Result, rec *pendingRecord) {
	if rec.fields == 0 {
		return
	}
	res.Stats.Records++
	if ep.Filter != nil && !ep.Filter(rec.entry.Message) {
		res.Stats.Filtered++
		return
	}
	if !rec.entry.Valid() {
		res.Invalid = append(res.Invalid, rec.entry.Anomaly(diag.InvalidEntry))
		return
	}
	res.Entries = append(res.Entries, rec.entry)
}

// Package audit is the append-only structured event sink every other
// component reports into. Each JSONL entry carries the SHA-256 hash of
// the previous line, forming a tamper-evident chain. Audit events are
// never silently dropped: a failed file write degrades to a prefixed
// line on the error stream.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/pii"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// TimestampFormat is the wire format for entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// fallbackPrefix marks entries echoed to the error stream when the
// file write fails.
const fallbackPrefix = "AUDIT-FALLBACK"

// Log is an append-only JSONL audit log with SHA-256 hash chaining and
// unconditional PII scrubbing. A nil *Log is usable: entries go to the
// error stream only.
type Log struct {
	path     string
	file     *os.File
	prevHash string
	errW     io.Writer
	alertFn  func(Entry)
	mu       sync.Mutex
}

// Open opens (or creates) an audit log file for appending, creating
// parent directories with restrictive permissions. If the file already
// exists, the last line is read back to recover the chain tail.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		tail, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(tail) > 0 {
			prevHash = HashLine(tail)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{
		path:     path,
		file:     file,
		prevHash: prevHash,
		errW:     os.Stderr,
	}, nil
}

// lastLine returns the final line of a JSONL file.
func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}

// SetAlertFunc installs a hook invoked for every CRITICAL entry,
// best-effort, after the entry is recorded.
func (l *Log) SetAlertFunc(fn func(Entry)) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.alertFn = fn
	l.mu.Unlock()
}

// Write appends one entry. ContactID and all string values inside
// Details are PII-scrubbed before serialization. The append is a
// single synchronous write: no retry, no reorder, no batching.
// CRITICAL entries are additionally echoed to the error stream
// regardless of whether the file write succeeded.
func (l *Log) Write(severity, event string, f Fields) {
	entry := Entry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		Severity:  severity,
		Event:     event,
		Channel:   f.Channel,
		ContactID: pii.Redact(f.ContactID),
		SessionID: f.SessionID,
		TraceID:   f.TraceID,
		Details:   scrubDetails(f.Details),
	}

	if l == nil {
		line, _ := json.Marshal(entry)
		fmt.Fprintf(os.Stderr, "%s %s\n", fallbackPrefix, line)
		return
	}

	l.mu.Lock()
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		l.mu.Unlock()
		fmt.Fprintf(l.errW, "%s marshal failed: %v\n", fallbackPrefix, err)
		return
	}

	if _, werr := l.file.Write(append(line, '\n')); werr != nil {
		fmt.Fprintf(l.errW, "%s %s\n", fallbackPrefix, line)
	} else {
		_ = l.file.Sync()
		l.prevHash = HashLine(line)
	}
	alertFn := l.alertFn
	errW := l.errW
	l.mu.Unlock()

	if severity == SeverityCritical {
		fmt.Fprintf(errW, "AUDIT-CRITICAL %s\n", line)
		if alertFn != nil {
			alertFn(entry)
		}
	}
}

// Info records an INFO-severity entry.
func (l *Log) Info(event string, f Fields) { l.Write(SeverityInfo, event, f) }

// Warn records a WARN-severity entry.
func (l *Log) Warn(event string, f Fields) { l.Write(SeverityWarn, event, f) }

// Error records an ERROR-severity entry.
func (l *Log) Error(event string, f Fields) { l.Write(SeverityError, event, f) }

// Critical records a CRITICAL-severity entry and echoes it to the
// error stream.
func (l *Log) Critical(event string, f Fields) { l.Write(SeverityCritical, event, f) }

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the log file path.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// scrubDetails redacts every string value in a details map, descending
// into nested maps and string slices.
func scrubDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = scrubValue(v)
	}
	return out
}

func scrubValue(v any) any {
	switch val := v.(type) {
	case string:
		return pii.Redact(val)
	case map[string]any:
		return scrubDetails(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = pii.Redact(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = scrubValue(e)
		}
		return out
	default:
		return v
	}
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

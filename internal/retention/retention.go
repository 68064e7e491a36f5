// Package retention is the external retention/erasure process for
// persisted state: it archives aged audit entries into a local sqlite
// database and records contact erasures. Retention runs offline (CLI)
// while the gateway is stopped: it rewrites the audit file, which
// must not race a live appender.
package retention

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
)

// Config is the validated retention policy.
type Config struct {
	ArchiveDB       string `yaml:"archive_db"`
	AuditMaxAgeDays int    `yaml:"audit_max_age_days"`
}

// Archiver owns the sqlite archive database.
type Archiver struct {
	db *sql.DB
}

// Open opens (or creates) the archive database and its schema.
func Open(path string) (*Archiver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("retention: open archive: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS audit_archive (
	ts         TEXT NOT NULL,
	severity   TEXT NOT NULL,
	event      TEXT NOT NULL,
	channel    TEXT,
	contact_id TEXT,
	session_id TEXT,
	trace_id   TEXT,
	line       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS erasures (
	contact_id TEXT NOT NULL,
	erased_at  TEXT NOT NULL,
	sessions   INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("retention: create schema: %w", err)
	}
	return &Archiver{db: db}, nil
}

// Close releases the database handle.
func (a *Archiver) Close() error { return a.db.Close() }

// ArchiveAudit moves every audit entry older than cutoff into the
// archive and rewrites the log with the remaining entries, re-anchored
// to a fresh genesis so the hash chain still verifies. Returns the
// number of entries archived.
func (a *Archiver) ArchiveAudit(logPath string, cutoff time.Time) (int, error) {
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("retention: open audit log: %w", err)
	}

	var keep []audit.Entry
	var malformed [][]byte
	archived := 0

	tx, err := a.db.Begin()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("retention: begin: %w", err)
	}
	defer tx.Rollback()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		var entry audit.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Lines that do not parse (a crash mid-append leaves one)
			// are evidence; they are carried over verbatim, never
			// archived or dropped.
			malformed = append(malformed, line)
			continue
		}

		ts, err := time.Parse(audit.TimestampFormat, entry.Timestamp)
		if err != nil || !ts.Before(cutoff) {
			keep = append(keep, entry)
			continue
		}

		_, err = tx.Exec(
			`INSERT INTO audit_archive (ts, severity, event, channel, contact_id, session_id, trace_id, line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.Timestamp, entry.Severity, entry.Event, entry.Channel,
			entry.ContactID, entry.SessionID, entry.TraceID, string(line),
		)
		if err != nil {
			f.Close()
			return 0, fmt.Errorf("retention: archive entry: %w", err)
		}
		archived++
	}
	f.Close()
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("retention: scan audit log: %w", err)
	}

	if archived == 0 {
		return 0, tx.Commit()
	}

	if err := rewriteChained(logPath, keep, malformed); err != nil {
		return 0, err
	}
	return archived, tx.Commit()
}

// rewriteChained writes entries back as a fresh hash chain. Raw
// unparseable lines land after the chain, byte for byte; Verify keeps
// failing on them exactly as it did before the rewrite.
func rewriteChained(logPath string, entries []audit.Entry, raw [][]byte) error {
	tmp := logPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("retention: write temp log: %w", err)
	}

	prevHash := audit.GenesisHash
	for _, entry := range entries {
		entry.PrevHash = prevHash
		line, err := json.Marshal(entry)
		if err != nil {
			f.Close()
			return fmt.Errorf("retention: marshal entry: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("retention: write entry: %w", err)
		}
		prevHash = audit.HashLine(line)
	}
	for _, line := range raw {
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("retention: write entry: %w", err)
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("retention: sync temp log: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, logPath)
}

// RecordErasure notes that a contact's state was erased, with the
// number of session files removed.
func (a *Archiver) RecordErasure(contactID string, sessions int) error {
	_, err := a.db.Exec(
		`INSERT INTO erasures (contact_id, erased_at, sessions) VALUES (?, ?, ?)`,
		contactID, time.Now().UTC().Format(audit.TimestampFormat), sessions,
	)
	if err != nil {
		return fmt.Errorf("retention: record erasure: %w", err)
	}
	return nil
}

// ArchivedCount returns the number of archived audit entries,
// optionally filtered by severity.
func (a *Archiver) ArchivedCount(severity string) (int, error) {
	var n int
	var err error
	if severity == "" {
		err = a.db.QueryRow(`SELECT COUNT(*) FROM audit_archive`).Scan(&n)
	} else {
		err = a.db.QueryRow(`SELECT COUNT(*) FROM audit_archive WHERE severity = ?`, severity).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("retention: count archive: %w", err)
	}
	return n, nil
}

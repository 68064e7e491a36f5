package retention

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
)

func openTestArchiver(t *testing.T) *Archiver {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeAuditEntries(t *testing.T, path string, events []string) {
	t.Helper()
	log, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		log.Info(e, audit.Fields{})
	}
	log.Close()
}

func TestArchiveAuditMissingLog(t *testing.T) {
	a := openTestArchiver(t)
	n, err := a.ArchiveAudit(filepath.Join(t.TempDir(), "absent.jsonl"), time.Now())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 archived, got %d", n)
	}
}

func TestArchiveAuditNothingOld(t *testing.T) {
	a := openTestArchiver(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeAuditEntries(t, logPath, []string{"one", "two"})

	// Cutoff in the past: nothing qualifies.
	n, err := a.ArchiveAudit(logPath, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 archived, got %d", n)
	}

	res := audit.Verify(logPath)
	if !res.Valid || res.Lines != 2 {
		t.Errorf("expected log untouched and valid, got %+v", res)
	}
}

func TestArchiveAuditMovesOldEntries(t *testing.T) {
	a := openTestArchiver(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeAuditEntries(t, logPath, []string{"old_one", "old_two", "old_three"})

	// Cutoff in the future: everything qualifies.
	n, err := a.ArchiveAudit(logPath, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 archived, got %d", n)
	}

	count, err := a.ArchivedCount("")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 in archive, got %d", count)
	}

	res := audit.Verify(logPath)
	if !res.Valid {
		t.Errorf("expected rewritten log valid: %s", res.Error)
	}
	if res.Lines != 0 {
		t.Errorf("expected empty log after full archive, got %d lines", res.Lines)
	}
}

// The remaining entries must form a verifiable chain after partial
// archival, re-anchored to genesis.
func TestArchiveAuditRewritesChain(t *testing.T) {
	a := openTestArchiver(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	old := audit.Entry{
		Timestamp: time.Now().Add(-48 * time.Hour).UTC().Format(audit.TimestampFormat),
		Severity:  audit.SeverityInfo,
		Event:     "ancient",
		PrevHash:  audit.GenesisHash,
	}
	line1, err := json.Marshal(old)
	if err != nil {
		t.Fatal(err)
	}
	recent := audit.Entry{
		Timestamp: time.Now().UTC().Format(audit.TimestampFormat),
		Severity:  audit.SeverityInfo,
		Event:     "recent",
		PrevHash:  audit.HashLine(line1),
	}
	line2, err := json.Marshal(recent)
	if err != nil {
		t.Fatal(err)
	}
	content := append(append(append([]byte(nil), line1...), '\n'), append(line2, '\n')...)
	if err := os.WriteFile(logPath, content, 0600); err != nil {
		t.Fatal(err)
	}

	n, err := a.ArchiveAudit(logPath, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived, got %d", n)
	}

	res := audit.Verify(logPath)
	if !res.Valid {
		t.Errorf("expected survivor chain valid: %s (line %d)", res.Error, res.ErrorLine)
	}
	if res.Lines != 1 {
		t.Errorf("expected 1 surviving line, got %d", res.Lines)
	}
}

// A crash mid-append leaves a truncated tail line; archival must carry
// it over untouched instead of erasing it.
func TestArchiveAuditKeepsMalformedLines(t *testing.T) {
	a := openTestArchiver(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	old := audit.Entry{
		Timestamp: time.Now().Add(-48 * time.Hour).UTC().Format(audit.TimestampFormat),
		Severity:  audit.SeverityInfo,
		Event:     "ancient",
		PrevHash:  audit.GenesisHash,
	}
	line1, err := json.Marshal(old)
	if err != nil {
		t.Fatal(err)
	}
	recent := audit.Entry{
		Timestamp: time.Now().UTC().Format(audit.TimestampFormat),
		Severity:  audit.SeverityInfo,
		Event:     "recent",
		PrevHash:  audit.HashLine(line1),
	}
	line2, err := json.Marshal(recent)
	if err != nil {
		t.Fatal(err)
	}

	truncated := `{"ts":"2026-08-29T00:00:00.000Z","severity":"INFO","ev`
	content := string(line1) + "\n" + string(line2) + "\n" + truncated + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := a.ArchiveAudit(logPath, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived, got %d", n)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, truncated) {
		t.Error("truncated line was dropped by archival")
	}
	if !strings.Contains(out, `"event":"recent"`) {
		t.Error("surviving entry missing after archival")
	}

	count, err := a.ArchivedCount("")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected only the parseable old entry archived, got %d", count)
	}
}

func TestRecordErasure(t *testing.T) {
	a := openTestArchiver(t)
	if err := a.RecordErasure("+15551234567", 3); err != nil {
		t.Fatalf("record erasure: %v", err)
	}
}

func TestArchivedCountBySeverity(t *testing.T) {
	a := openTestArchiver(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := audit.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("a", audit.Fields{})
	log.Warn("b", audit.Fields{})
	log.Close()

	if _, err := a.ArchiveAudit(logPath, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	warns, err := a.ArchivedCount(audit.SeverityWarn)
	if err != nil {
		t.Fatal(err)
	}
	if warns != 1 {
		t.Errorf("expected 1 WARN archived, got %d", warns)
	}
}

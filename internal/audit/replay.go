package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// ReplaySummary aggregates a filtered slice of the log.
type ReplaySummary struct {
	Entries        int            `json:"entries"`
	BySeverity     map[string]int `json:"by_severity"`
	FirstTimestamp string         `json:"first_ts,omitempty"`
	LastTimestamp  string         `json:"last_ts,omitempty"`
}

// ReplayResult is the filtered timeline for one trace or session.
type ReplayResult struct {
	Filter  string        `json:"filter"`
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads a JSONL audit log and returns every entry whose trace
// or session ID matches id, in file order. Malformed lines are skipped:
// replay is a read-side tool and must not fail on a partially written
// tail.
func Replay(path, id string) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		Filter:  id,
		Summary: ReplaySummary{BySeverity: make(map[string]int)},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.TraceID != id && entry.SessionID != id {
			continue
		}
		result.Entries = append(result.Entries, entry)
		result.Summary.BySeverity[entry.Severity]++
		if result.Summary.FirstTimestamp == "" {
			result.Summary.FirstTimestamp = entry.Timestamp
		}
		result.Summary.LastTimestamp = entry.Timestamp
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}

	result.Summary.Entries = len(result.Entries)
	return result, nil
}

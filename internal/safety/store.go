// Package safety tracks identity continuity per contact: a
// trust-on-first-use fingerprint record. A fingerprint change for a
// known contact always suspends the contact and drops verification;
// only an explicit administrative action clears suspension.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
)

// Record is the continuity state for one contact.
type Record struct {
	ContactID   string `json:"contact_id"`
	Fingerprint string `json:"fingerprint"`
	Verified    bool   `json:"verified"`
	FirstSeen   int64  `json:"first_seen"`
	LastSeen    int64  `json:"last_seen"`
	Suspended   bool   `json:"suspended"`
}

// Store is the durable contactId → Record table, mirrored to a single
// JSON file.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]*Record
	log     *audit.Log
}

// Load reads (or initializes) the safety-number store at path.
func Load(path string, log *audit.Log) (*Store, error) {
	st := &Store{
		path:    path,
		records: make(map[string]*Record),
		log:     log,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("safety: read store: %w", err)
	}
	if err := json.Unmarshal(data, &st.records); err != nil {
		return nil, fmt.Errorf("safety: parse store: %w", err)
	}
	return st, nil
}

// Observe records a fingerprint sighting for a contact. First contact
// is trusted (TOFU). A changed fingerprint for a known contact flips
// Suspended=true and Verified=false and is logged at CRITICAL. An
// empty fingerprint only bumps LastSeen on an existing record.
func (st *Store) Observe(contactID, fingerprint string) (*Record, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UnixMilli()
	rec, ok := st.records[contactID]
	if !ok {
		rec = &Record{
			ContactID:   contactID,
			Fingerprint: fingerprint,
			FirstSeen:   now,
			LastSeen:    now,
		}
		st.records[contactID] = rec
		return rec, st.saveLocked()
	}

	rec.LastSeen = now
	if fingerprint != "" && rec.Fingerprint != "" && fingerprint != rec.Fingerprint {
		rec.Suspended = true
		rec.Verified = false
		rec.Fingerprint = fingerprint
		st.log.Critical("safety_number_changed", audit.Fields{
			ContactID: contactID,
			Details:   map[string]any{"note": "fingerprint changed; contact suspended"},
		})
	} else if fingerprint != "" && rec.Fingerprint == "" {
		rec.Fingerprint = fingerprint
	}
	return rec, st.saveLocked()
}

// IsSuspended reports whether the contact is currently suspended.
func (st *Store) IsSuspended(contactID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.records[contactID]
	return ok && rec.Suspended
}

// Suspend marks a contact suspended (e.g. after a suspend-severity
// prompt-injection verdict).
func (st *Store) Suspend(contactID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.records[contactID]
	if !ok {
		rec = &Record{ContactID: contactID, FirstSeen: time.Now().UnixMilli()}
		st.records[contactID] = rec
	}
	rec.Suspended = true
	rec.Verified = false
	return st.saveLocked()
}

// ClearSuspension lifts a suspension. Administrative action only;
// recorded at WARN.
func (st *Store) ClearSuspension(contactID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.records[contactID]
	if !ok {
		return fmt.Errorf("safety: unknown contact")
	}
	rec.Suspended = false
	st.log.Warn("safety_suspension_cleared", audit.Fields{ContactID: contactID})
	return st.saveLocked()
}

// MarkVerified records that the contact's fingerprint was verified
// out of band.
func (st *Store) MarkVerified(contactID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.records[contactID]
	if !ok {
		return fmt.Errorf("safety: unknown contact")
	}
	rec.Verified = true
	return st.saveLocked()
}

// Get returns a copy of the record for contactID, or nil.
func (st *Store) Get(contactID string) *Record {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.records[contactID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Erase removes a contact's record entirely.
func (st *Store) Erase(contactID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.records, contactID)
	return st.saveLocked()
}

// saveLocked writes the table atomically. Callers hold st.mu.
func (st *Store) saveLocked() error {
	data, err := json.MarshalIndent(st.records, "", "  ")
	if err != nil {
		return fmt.Errorf("safety: marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0700); err != nil {
		return fmt.Errorf("safety: create directory: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("safety: write store: %w", err)
	}
	return os.Rename(tmp, st.path)
}

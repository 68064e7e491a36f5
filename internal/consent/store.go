// Package consent stores per-contact consent records in a single
// encrypted JSON file.
package consent

import (
	"errors"
	"sync"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/cryptostore"
)

// hkdfInfo separates consent keys from session-store keys under the
// same master key.
const hkdfInfo = "openclaw-consent"

// Record is one contact's consent state.
type Record struct {
	ContactID string `json:"contact_id"`
	Granted   bool   `json:"granted"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store is the encrypted contactId → Record table.
type Store struct {
	mu      sync.Mutex
	path    string
	key     string
	records map[string]Record
}

// Load reads (or initializes) the consent store at path.
func Load(path, masterKey string) (*Store, error) {
	if masterKey == "" {
		return nil, cryptostore.ErrNoKey
	}
	st := &Store{
		path:    path,
		key:     masterKey,
		records: make(map[string]Record),
	}
	err := cryptostore.ReadEncryptedJSON(path, &st.records, masterKey, hkdfInfo)
	if err != nil && !errors.Is(err, cryptostore.ErrNotFound) {
		return nil, err
	}
	return st, nil
}

// Grant records consent for a contact.
func (st *Store) Grant(contactID string) error {
	return st.set(contactID, true)
}

// Revoke withdraws consent for a contact.
func (st *Store) Revoke(contactID string) error {
	return st.set(contactID, false)
}

// Has reports whether the contact has granted consent.
func (st *Store) Has(contactID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.records[contactID]
	return ok && rec.Granted
}

// Erase removes a contact's consent record entirely.
func (st *Store) Erase(contactID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.records, contactID)
	return st.saveLocked()
}

func (st *Store) set(contactID string, granted bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.records[contactID] = Record{
		ContactID: contactID,
		Granted:   granted,
		UpdatedAt: time.Now().UnixMilli(),
	}
	return st.saveLocked()
}

func (st *Store) saveLocked() error {
	return cryptostore.WriteEncryptedJSON(st.path, st.records, st.key, hkdfInfo)
}

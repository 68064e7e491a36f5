// Package persist durably mirrors session state to disk: one
// encrypted file per session, inside a jailed directory, surviving
// process restart.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/cryptostore"
	"github.com/phazurlabs/openclaw-fortress/internal/pathjail"
	"github.com/phazurlabs/openclaw-fortress/internal/session"
)

const fileExt = ".enc"

// Store writes encrypted session files under a directory validated to
// live inside a jail root.
type Store struct {
	dir string
	key string
}

// NewStore validates dir against jailRoot and returns a store writing
// with masterKey. The directory is created with restrictive
// permissions.
func NewStore(dir, jailRoot, masterKey string) (*Store, error) {
	if masterKey == "" {
		return nil, cryptostore.ErrNoKey
	}
	abs, err := pathjail.ValidatePath(dir, jailRoot)
	if err != nil {
		return nil, fmt.Errorf("persist: sessions directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("persist: create sessions directory: %w", err)
	}
	return &Store{dir: abs, key: masterKey}, nil
}

// path maps a validated session ID to its file.
func (st *Store) path(id string) (string, error) {
	if !pathjail.IsValidSessionID(id) {
		return "", fmt.Errorf("persist: invalid session id")
	}
	return filepath.Join(st.dir, id+fileExt), nil
}

// Save writes one session, atomically replacing any previous file.
func (st *Store) Save(s *session.Session) error {
	p, err := st.path(s.ID)
	if err != nil {
		return err
	}
	return cryptostore.WriteEncryptedJSON(p, s, st.key, cryptostore.DefaultInfo)
}

// Load reads one session by ID.
func (st *Store) Load(id string) (*session.Session, error) {
	p, err := st.path(id)
	if err != nil {
		return nil, err
	}
	var s session.Session
	if err := cryptostore.ReadEncryptedJSON(p, &s, st.key, cryptostore.DefaultInfo); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes one session file. Deleting an absent session is not
// an error.
func (st *Store) Delete(id string) error {
	p, err := st.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persist: delete session: %w", err)
	}
	return nil
}

// List returns the IDs of all persisted sessions. Files whose names do
// not form a valid session ID are ignored.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("persist: read sessions directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		if pathjail.IsValidSessionID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// PruneExpired loads each persisted session, deletes the stale ones,
// and returns the count removed. Undecryptable files are left in
// place: deleting them would let an attacker destroy state by
// corrupting it.
func (st *Store) PruneExpired(now time.Time) (int, error) {
	ids, err := st.List()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			continue
		}
		if s.Expired(now) {
			if err := st.Delete(id); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

// Restore loads every non-expired persisted session into the manager,
// keyed by (channel, contactId). IDs or pairs already present in
// memory are skipped, so a second restore is a no-op. Sessions found
// expired during the scan are hard-deleted. Returns (restored,
// pruned).
func (st *Store) Restore(mgr *session.Manager) (int, int, error) {
	ids, err := st.List()
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	restored, pruned := 0, 0
	var firstErr error
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			if firstErr == nil && !errors.Is(err, cryptostore.ErrNotFound) {
				firstErr = err
			}
			continue
		}
		if s.Expired(now) {
			_ = st.Delete(id)
			pruned++
			continue
		}
		if mgr.Adopt(s) {
			restored++
		}
	}
	return restored, pruned, firstErr
}

// EraseContact deletes every persisted session whose decrypted
// contactId matches. Filenames are session IDs and carry no contact
// information, so each file is decrypted and checked; this is the
// slow, correct form of erasure. Returns the count removed.
func (st *Store) EraseContact(contactID string) (int, error) {
	ids, err := st.List()
	if err != nil {
		return 0, err
	}

	erased := 0
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			continue
		}
		if s.ContactID != contactID {
			continue
		}
		if err := st.Delete(id); err != nil {
			return erased, err
		}
		erased++
	}
	return erased, nil
}

// Dir returns the validated sessions directory.
func (st *Store) Dir() string { return st.dir }

package session

import (
	"sync"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/model"
)

// Validation failure reasons. These are policy results, not errors.
const (
	ReasonNotFound        = "Session not found"
	ReasonExpired         = "Session expired"
	ReasonChannelMismatch = "Channel mismatch"
	ReasonContactMismatch = "Contact mismatch"
)

// ValidationResult is the outcome of validating a session ID against
// the identity presenting it.
type ValidationResult struct {
	Valid   bool
	Reason  string
	Session *Session
}

type peerKey struct {
	channel model.Channel
	contact string
}

// Manager owns the in-memory session table. All state is instance
// state; construct one per process and pass it by handle.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byPeer   map[peerKey]string
	now      func() time.Time
}

// NewManager creates an empty session table.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byPeer:   make(map[peerKey]string),
		now:      time.Now,
	}
}

// SetClock overrides the manager's clock. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Create mints a fresh session for (contactID, channel) expiring
// maxAgeSeconds from now. An existing session for the same pair is
// superseded.
func (m *Manager) Create(contactID string, channel model.Channel, maxAgeSeconds int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixMilli()
	s := &Session{
		ID:           newID(),
		ContactID:    contactID,
		Channel:      channel,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now + int64(maxAgeSeconds)*1000,
	}

	key := peerKey{channel, contactID}
	if oldID, ok := m.byPeer[key]; ok {
		delete(m.sessions, oldID)
	}
	m.sessions[s.ID] = s
	m.byPeer[key] = s.ID
	return s
}

// Validate checks that id exists, is not expired, and is bound to the
// presented (contactID, channel). A found-but-expired session is
// deleted as a side effect: expired sessions never remain lookup-able
// after a failed validation. Channel mismatch is reported before
// contact mismatch. Success bumps LastActiveAt.
func (m *Manager) Validate(id, contactID string, channel model.Channel) ValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ValidationResult{Reason: ReasonNotFound}
	}
	if s.Expired(m.now()) {
		m.deleteLocked(s)
		return ValidationResult{Reason: ReasonExpired}
	}
	if s.Channel != channel {
		return ValidationResult{Reason: ReasonChannelMismatch}
	}
	if s.ContactID != contactID {
		return ValidationResult{Reason: ReasonContactMismatch}
	}

	s.LastActiveAt = m.now().UnixMilli()
	return ValidationResult{Valid: true, Session: s}
}

// Lookup returns the live session for (contactID, channel), or nil.
// An expired session found here is deleted, same as in Validate.
func (m *Manager) Lookup(contactID string, channel model.Channel) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byPeer[peerKey{channel, contactID}]
	if !ok {
		return nil
	}
	s := m.sessions[id]
	if s == nil {
		delete(m.byPeer, peerKey{channel, contactID})
		return nil
	}
	if s.Expired(m.now()) {
		m.deleteLocked(s)
		return nil
	}
	return s
}

// Get returns the session with the given ID without validating its
// binding or bumping activity. Expired sessions still return here;
// callers that care must Validate.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Rotate atomically replaces the session's ID: the old entry is
// deleted and a new one inserted with RotatedFrom set, preserving
// contactID, channel, expiry, and history. Returns nil when oldID is
// unknown (no-op, not an error).
func (m *Manager) Rotate(oldID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.sessions[oldID]
	if !ok {
		return nil
	}

	fresh := &Session{
		ID:           newID(),
		ContactID:    old.ContactID,
		Channel:      old.Channel,
		CreatedAt:    old.CreatedAt,
		LastActiveAt: m.now().UnixMilli(),
		ExpiresAt:    old.ExpiresAt,
		RotatedFrom:  oldID,
		History:      old.History,
	}

	delete(m.sessions, oldID)
	m.sessions[fresh.ID] = fresh
	m.byPeer[peerKey{fresh.Channel, fresh.ContactID}] = fresh.ID
	return fresh
}

// AppendTurn adds one conversation turn to a session's history.
func (m *Manager) AppendTurn(id string, t Turn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.History = append(s.History, t)
	return true
}

// Destroy removes a session by ID.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.deleteLocked(s)
	return true
}

// Prune sweeps and deletes every expired session, returning the count.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, s := range m.sessions {
		if s.Expired(now) {
			m.deleteLocked(s)
			n++
		}
	}
	return n
}

// Clear drops all sessions.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
	m.byPeer = make(map[peerKey]string)
}

// List returns all live session snapshots (expired ones are skipped,
// not deleted).
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !s.Expired(now) {
			out = append(out, s)
		}
	}
	return out
}

// Adopt inserts a restored session, skipping when its (channel,
// contactId) pair or ID is already present. Used by the persistence
// restore pass; idempotent.
func (m *Manager) Adopt(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return false
	}
	key := peerKey{s.Channel, s.ContactID}
	if _, ok := m.byPeer[key]; ok {
		return false
	}
	m.sessions[s.ID] = s
	m.byPeer[key] = s.ID
	return true
}

func (m *Manager) deleteLocked(s *Session) {
	delete(m.sessions, s.ID)
	key := peerKey{s.Channel, s.ContactID}
	if m.byPeer[key] == s.ID {
		delete(m.byPeer, key)
	}
}

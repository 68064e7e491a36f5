// Package session manages ephemeral, cryptographically named chat
// sessions bound to a (channel, contactId) pair. Expiry is a predicate
// evaluated on read; there is no background timer.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/model"
)

// Turn is one exchange in a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	At      int64  `json:"at"`
}

// Session is one managed conversation. A session is addressable only
// by its own ID; the (channel, contactId) binding is enforced on every
// validation, not just at creation.
type Session struct {
	ID           string        `json:"id"`
	ContactID    string        `json:"contact_id"`
	Channel      model.Channel `json:"channel"`
	CreatedAt    int64         `json:"created_at"`
	LastActiveAt int64         `json:"last_active_at"`
	ExpiresAt    int64         `json:"expires_at"`
	RotatedFrom  string        `json:"rotated_from,omitempty"`
	History      []Turn        `json:"history,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt < now.UnixMilli()
}

// newID mints an unguessable session ID: "sess-" plus 128 bits of
// randomness, hex encoded. The format satisfies the path-jail session
// ID character rules.
func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is unrecoverable for session naming.
		panic(fmt.Sprintf("session: id generation: %v", err))
	}
	return "sess-" + hex.EncodeToString(b)
}

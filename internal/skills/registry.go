// Package skills is a capability registry for tool handlers backed by
// on-disk definitions. Integrity is verified once at registration and
// re-checked on every invocation via an explicit hash compare, never
// via ambient trust in the file.
package skills

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
)

// ErrIntegrity indicates a skill file changed after registration.
// This is an integrity failure, not a policy rejection: it surfaces as
// an error the caller must not swallow.
var ErrIntegrity = errors.New("skills: integrity check failed")

// ErrUnknownSkill indicates an invocation of a name never registered.
var ErrUnknownSkill = errors.New("skills: unknown skill")

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type skill struct {
	name    string
	path    string
	hash    string
	handler Handler
}

// Registry maps skill names to verified, pre-loaded handlers.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*skill
	log    *audit.Log
}

// NewRegistry creates an empty registry reporting into log.
func NewRegistry(log *audit.Log) *Registry {
	return &Registry{
		skills: make(map[string]*skill),
		log:    log,
	}
}

// Register records a skill with the SHA-256 of its definition file.
func (r *Registry) Register(name, path string, handler Handler) error {
	hash, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("skills: register %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[name]; ok {
		return fmt.Errorf("skills: %q already registered", name)
	}
	r.skills[name] = &skill{name: name, path: path, hash: hash, handler: handler}

	r.log.Info("skill_registered", audit.Fields{
		Details: map[string]any{"skill": name, "hash": hash},
	})
	return nil
}

// Invoke re-hashes the skill's file and compares against the hash
// recorded at registration before running the handler. A mismatch is
// logged at CRITICAL and returns ErrIntegrity.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	sk, ok := r.skills[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}

	current, err := hashFile(sk.path)
	if err != nil {
		return "", fmt.Errorf("skills: verify %q: %w", name, err)
	}
	if current != sk.hash {
		r.log.Critical("skill_hash_mismatch", audit.Fields{
			Details: map[string]any{
				"skill":    name,
				"expected": sk.hash,
				"actual":   current,
			},
		})
		return "", fmt.Errorf("%w: %s", ErrIntegrity, name)
	}

	return sk.handler(ctx, args)
}

// List returns registered skill names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	return names
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

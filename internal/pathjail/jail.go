// Package pathjail provides path-containment and sanitization
// primitives. Every file path derived from external input must pass
// through ValidatePath before it touches the filesystem.
package pathjail

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9-]{8,128}$`)

// IsValidSessionID reports whether id is safe to use as a filename
// component: 8-128 characters of [A-Za-z0-9-], no traversal sequence,
// no null byte. The substring checks are redundant with the regex on
// purpose: a future regex change must not silently reintroduce
// traversal.
func IsValidSessionID(id string) bool {
	if !sessionIDRe.MatchString(id) {
		return false
	}
	if strings.Contains(id, "..") {
		return false
	}
	if ContainsNullByte(id) {
		return false
	}
	return true
}

// ContainsNullByte reports whether s contains a NUL byte.
func ContainsNullByte(s string) bool {
	return strings.ContainsRune(s, 0)
}

// SanitizePathSegment strips every character outside [A-Za-z0-9._-].
func SanitizePathSegment(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	return b.String()
}

// IsInsideJail reports whether targetPath resolves to a location inside
// jailDir. Both paths are made absolute and cleaned first. The relative
// path from jail to target must not start with .., and re-joining jail
// with it must reproduce the target exactly, which defends against
// relative-path tricks that survive a plain prefix check.
func IsInsideJail(targetPath, jailDir string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absJail, err := filepath.Abs(jailDir)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absJail, absTarget)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return filepath.Join(absJail, rel) == absTarget
}

// ValidatePath resolves userInput against jailDir and returns the
// absolute path on success. Null bytes are rejected before traversal
// sequences so the error reason is deterministic; containment is
// re-checked on the resolved result.
func ValidatePath(userInput, jailDir string) (string, error) {
	if ContainsNullByte(userInput) {
		return "", fmt.Errorf("pathjail: null byte in path")
	}
	if strings.Contains(userInput, "..") {
		return "", fmt.Errorf("pathjail: path traversal detected")
	}

	resolved, err := filepath.Abs(filepath.Join(jailDir, userInput))
	if err != nil {
		return "", fmt.Errorf("pathjail: resolve path: %w", err)
	}
	if !IsInsideJail(resolved, jailDir) {
		return "", fmt.Errorf("pathjail: path escapes jail")
	}
	return resolved, nil
}

package pii

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// ErrNoHMACSecret is returned by HashPhone when no secret is configured.
// There is deliberately no unkeyed fallback.
var ErrNoHMACSecret = errors.New("pii: phone hashing requires a non-empty HMAC secret")

var e164Re = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// IsValidE164 reports whether s is a valid E.164 phone number:
// a leading + followed by 7-15 digits, first digit 1-9.
func IsValidE164(s string) bool {
	return e164Re.MatchString(s)
}

// HashPhone returns the hex HMAC-SHA-256 of phone keyed with secret.
// Fails when secret is empty.
func HashPhone(phone, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoHMACSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(phone))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// MaskPhone masks an E.164 phone number for display, keeping the first
// 2 and last 4 characters and preserving total length. Non-E.164 input
// yields the literal ***INVALID***.
func MaskPhone(phone string) string {
	if !IsValidE164(phone) {
		return "***INVALID***"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-4:]
}

// MaskEmail masks the local part of an email address, keeping its first
// character and the domain verbatim. Input without an @ (or with @ as
// the first character) yields ***@***.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***@***"
	}
	return email[:1] + "***" + email[at:]
}

// MaskGeneric masks an arbitrary string: length <= 4 becomes ****,
// longer strings keep the first 2 and last 2 characters and preserve
// total length.
func MaskGeneric(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

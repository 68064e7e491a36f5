// Package tokenauth gates gateway connections with a shared token.
// Token comparison is constant-time over fixed-length digests so that
// neither early-return timing nor memcmp-style timing leaks which
// candidate token is closer to the real one.
package tokenauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/ratelimit"
)

// minHexChars is the minimum count of hex-valid characters a token
// must carry: 32 nibbles = 16 bytes = 128 bits.
const minHexChars = 32

// defaultMaxPerMinute is the per-IP authentication attempt budget.
const defaultMaxPerMinute = 60

// Result is the outcome of an authentication check.
type Result struct {
	OK     bool
	Reason string
}

// Authenticator verifies gateway tokens and rate-limits attempts per
// client IP.
type Authenticator struct {
	limiter *ratelimit.Limiter
	log     *audit.Log
}

// New creates an authenticator with a 60-attempts-per-minute per-IP
// sliding window.
func New(log *audit.Log) *Authenticator {
	return &Authenticator{
		limiter: ratelimit.New(defaultMaxPerMinute, time.Minute),
		log:     log,
	}
}

// CheckTokenEntropy reports whether token carries at least 128 bits of
// hex-valid content. Non-hex characters do not count, so a long
// low-entropy token can still fail.
func CheckTokenEntropy(token string) bool {
	n := 0
	for _, c := range token {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			n++
		}
	}
	return n >= minHexChars
}

// VerifyToken compares provided against expected in constant time.
// Both values are hashed to fixed-length digests first; the digest
// comparison and the original-length comparison are combined without
// short-circuiting. Empty provided or expected always fails.
func VerifyToken(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}

	ph := sha256.Sum256([]byte(provided))
	eh := sha256.Sum256([]byte(expected))

	digestEq := subtle.ConstantTimeCompare(ph[:], eh[:])
	lenEq := subtle.ConstantTimeEq(int32(len(provided)), int32(len(expected)))
	return digestEq&lenEq == 1
}

// GenerateToken returns a fresh hex token of n random bytes
// (32 bytes when n <= 0).
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokenauth: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CheckRateLimit records an attempt for key and reports whether it is
// within the per-minute budget.
func (a *Authenticator) CheckRateLimit(key string) bool {
	return a.limiter.Allow(key)
}

// ResetRateLimits clears all attempt counters. Test isolation only.
func (a *Authenticator) ResetRateLimits() {
	a.limiter.Reset()
}

// Authenticate runs the full gateway authentication decision for one
// connection attempt from ip.
//
// No expected token configured means the gateway is explicitly open:
// allowed, logged at WARN. A missing provided token when one is
// expected is treated as more suspicious than a wrong one (probing)
// and logged at CRITICAL. The per-IP rate limit is consumed before any
// token comparison so repeated guesses burn the attacker's budget
// first.
func (a *Authenticator) Authenticate(provided, expected, ip string) Result {
	if expected == "" {
		a.log.Warn("gateway_auth_open", audit.Fields{
			Details: map[string]any{"ip": ip, "note": "no gateway token configured"},
		})
		return Result{OK: true, Reason: "open mode"}
	}

	if provided == "" {
		a.log.Critical("gateway_auth_missing_token", audit.Fields{
			Details: map[string]any{"ip": ip},
		})
		return Result{Reason: "Missing token"}
	}

	if !a.limiter.Allow(ip) {
		a.log.Warn("gateway_auth_rate_limited", audit.Fields{
			Details: map[string]any{"ip": ip},
		})
		return Result{Reason: "Rate limited"}
	}

	if !VerifyToken(provided, expected) {
		a.log.Critical("gateway_auth_invalid_token", audit.Fields{
			Details: map[string]any{"ip": ip},
		})
		return Result{Reason: "Invalid token"}
	}

	return Result{OK: true}
}

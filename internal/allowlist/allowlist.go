// Package allowlist gates inbound messaging-channel traffic by sender
// and group membership, plus a per-sender sliding-window rate limit.
//
// An empty allowed set means open mode: allow all for that dimension.
// The only way to close a channel is to configure a non-empty set.
package allowlist

import (
	"sync"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/ratelimit"
)

// Config is the validated allowlist policy for one channel.
type Config struct {
	AllowedNumbers     []string `yaml:"allowed_numbers"`
	AllowedGroups      []string `yaml:"allowed_groups"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate checks senders and groups against the configured allowlist.
// Rejections are silent at the channel level but recorded at WARN.
type Gate struct {
	mu      sync.RWMutex
	numbers map[string]struct{}
	groups  map[string]struct{}
	limiter *ratelimit.Limiter
	log     *audit.Log
	channel string
}

// New creates a gate for one channel from its config.
func New(channel string, cfg Config, log *audit.Log) *Gate {
	g := &Gate{
		limiter: ratelimit.New(cfg.RateLimitPerMinute, time.Minute),
		log:     log,
		channel: channel,
	}
	g.apply(cfg)
	return g
}

func (g *Gate) apply(cfg Config) {
	numbers := make(map[string]struct{}, len(cfg.AllowedNumbers))
	for _, n := range cfg.AllowedNumbers {
		numbers[n] = struct{}{}
	}
	groups := make(map[string]struct{}, len(cfg.AllowedGroups))
	for _, id := range cfg.AllowedGroups {
		groups[id] = struct{}{}
	}
	g.mu.Lock()
	g.numbers = numbers
	g.groups = groups
	g.mu.Unlock()
}

// Reload replaces the allowed sets without restarting. The rate
// limiter state survives a reload.
func (g *Gate) Reload(cfg Config) {
	g.apply(cfg)
}

// IsNumberAllowed reports whether sender passes the number dimension.
// Empty set means open mode.
func (g *Gate) IsNumberAllowed(sender string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.numbers) == 0 {
		return true
	}
	_, ok := g.numbers[sender]
	return ok
}

// IsGroupAllowed reports whether groupID passes the group dimension.
// Empty set means open mode.
func (g *Gate) IsGroupAllowed(groupID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.groups) == 0 {
		return true
	}
	_, ok := g.groups[groupID]
	return ok
}

// Check runs the full gate for one message. When a group ID is
// present, the group check runs before the sender check: a disallowed
// group must not be usable to probe which senders are allowlisted.
// The rate limit is checked last and is independent of the membership
// dimensions.
func (g *Gate) Check(sender, groupID string) Decision {
	if groupID != "" && !g.IsGroupAllowed(groupID) {
		g.log.Warn("allowlist_rejected", audit.Fields{
			Channel:   g.channel,
			ContactID: sender,
			Details:   map[string]any{"reason": "group", "group_id": groupID},
		})
		return Decision{Reason: "Group not in allowlist"}
	}

	if !g.IsNumberAllowed(sender) {
		g.log.Warn("allowlist_rejected", audit.Fields{
			Channel:   g.channel,
			ContactID: sender,
			Details:   map[string]any{"reason": "number"},
		})
		return Decision{Reason: "Number not in allowlist"}
	}

	if !g.limiter.Allow(sender) {
		g.log.Warn("allowlist_rate_limited", audit.Fields{
			Channel:   g.channel,
			ContactID: sender,
		})
		return Decision{Reason: "Rate limited"}
	}

	return Decision{Allowed: true}
}

// Reset clears rate limiter state. Test isolation only.
func (g *Gate) Reset() {
	g.limiter.Reset()
}

// Package model holds the shared message and verdict types passed
// between channel adapters and the security pipeline.
package model

// Channel identifies the transport a message arrived on.
type Channel string

const (
	// ChannelMessaging is the private messaging app (one-to-one or group).
	ChannelMessaging Channel = "messaging"
	// ChannelTeamChat is the team chat integration.
	ChannelTeamChat Channel = "teamchat"
	// ChannelWeb is the browser WebSocket UI.
	ChannelWeb Channel = "web"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelMessaging, ChannelTeamChat, ChannelWeb:
		return true
	}
	return false
}

// InboundMessage is the value a channel adapter delivers to the pipeline.
type InboundMessage struct {
	Channel     Channel  `json:"channel"`
	ContactID   string   `json:"contact_id"`
	GroupID     string   `json:"group_id,omitempty"`
	Text        string   `json:"text"`
	Timestamp   int64    `json:"timestamp"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// GateResult is the tagged outcome of running a message through the
// pipeline. The channel adapter decides whether a rejected message gets
// an explicit error reply or no reply at all; Silent carries the
// pipeline's recommendation.
type GateResult struct {
	Allowed bool   `json:"allowed"`
	Reply   string `json:"reply,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Silent  bool   `json:"silent,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Allowed builds a successful result carrying the reply text.
func Allowed(reply, traceID string) GateResult {
	return GateResult{Allowed: true, Reply: reply, TraceID: traceID}
}

// Rejected builds a policy-rejection result. Silent rejections produce
// no user-visible reply at the channel boundary.
func Rejected(stage, reason string, silent bool) GateResult {
	return GateResult{Allowed: false, Stage: stage, Reason: reason, Silent: silent}
}

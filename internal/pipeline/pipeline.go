// Package pipeline composes the security gates into the per-message
// decision procedure: safety number → allowlist → prompt guard →
// session → LLM → persistence, auditing every step. Gates run strictly
// in sequence for one message; messages from different contacts may
// interleave freely, each on its own session entry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/ppiankov/neurorouter"

	"github.com/phazurlabs/openclaw-fortress/internal/allowlist"
	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/config"
	"github.com/phazurlabs/openclaw-fortress/internal/llm"
	"github.com/phazurlabs/openclaw-fortress/internal/model"
	"github.com/phazurlabs/openclaw-fortress/internal/persist"
	"github.com/phazurlabs/openclaw-fortress/internal/promptguard"
	"github.com/phazurlabs/openclaw-fortress/internal/safety"
	"github.com/phazurlabs/openclaw-fortress/internal/session"
	"github.com/phazurlabs/openclaw-fortress/internal/skills"
)

// Stage names reported in GateResult and audit entries.
const (
	StageSafety    = "safety"
	StageAllowlist = "allowlist"
	StageGuard     = "promptguard"
	StageSession   = "session"
	StageLLM       = "llm"
)

// Options wires a handler. Log, LLM, Sessions, and Safety are
// required; Store and Skills are optional.
type Options struct {
	Config   *config.Config
	Log      *audit.Log
	LLM      llm.Client
	Sessions *session.Manager
	Store    *persist.Store
	Safety   *safety.Store
	Skills   *skills.Registry
}

// Handler runs inbound messages through the full gate sequence.
type Handler struct {
	cfg      *config.Config
	log      *audit.Log
	llm      llm.Client
	sessions *session.Manager
	store    *persist.Store
	safety   *safety.Store
	skills   *skills.Registry
	guard    *promptguard.Scanner
	gates    map[model.Channel]*allowlist.Gate
}

// New builds a handler with one allowlist gate per channel.
func New(opts Options) *Handler {
	h := &Handler{
		cfg:      opts.Config,
		log:      opts.Log,
		llm:      opts.LLM,
		sessions: opts.Sessions,
		store:    opts.Store,
		safety:   opts.Safety,
		skills:   opts.Skills,
		guard:    promptguard.NewScanner(opts.Log),
		gates:    make(map[model.Channel]*allowlist.Gate),
	}
	for _, ch := range []model.Channel{model.ChannelMessaging, model.ChannelTeamChat, model.ChannelWeb} {
		h.gates[ch] = allowlist.New(string(ch), opts.Config.ChannelConfig(ch), opts.Log)
	}
	return h
}

// ReloadAllowlists re-applies channel allowlist config without
// restarting. Rate limiter state survives.
func (h *Handler) ReloadAllowlists(cfg *config.Config) {
	for ch, gate := range h.gates {
		gate.Reload(cfg.ChannelConfig(ch))
	}
}

// HandleMessage runs one inbound message through every gate and, when
// allowed, through a conversation turn. The result is tagged: the
// channel adapter decides what a silent rejection looks like on its
// transport.
func (h *Handler) HandleMessage(ctx context.Context, msg model.InboundMessage) model.GateResult {
	traceID := uuid.NewString()

	if !msg.Channel.Valid() {
		return model.Rejected(StageSession, "Unknown channel", true)
	}

	// Identity continuity first: a suspended contact gets nothing,
	// not even a rate-limit consumption.
	if h.safety != nil {
		if msg.Fingerprint != "" {
			if _, err := h.safety.Observe(msg.ContactID, msg.Fingerprint); err != nil {
				fmt.Fprintf(os.Stderr, "pipeline: safety store: %v\n", err)
			}
		}
		if h.safety.IsSuspended(msg.ContactID) {
			h.log.Warn("message_rejected_suspended", audit.Fields{
				Channel:   string(msg.Channel),
				ContactID: msg.ContactID,
				TraceID:   traceID,
			})
			return model.Rejected(StageSafety, "Contact suspended", true)
		}
	}

	if d := h.gates[msg.Channel].Check(msg.ContactID, msg.GroupID); !d.Allowed {
		return model.Rejected(StageAllowlist, d.Reason, true)
	}

	scan := h.guard.Scan(msg.Text)
	switch scan.Action {
	case promptguard.ActionSuspend:
		if h.safety != nil {
			if err := h.safety.Suspend(msg.ContactID); err != nil {
				fmt.Fprintf(os.Stderr, "pipeline: suspend contact: %v\n", err)
			}
		}
		return model.Rejected(StageGuard, "Prompt injection detected", true)
	case promptguard.ActionBlock:
		return model.Rejected(StageGuard, "Message blocked by security policy", false)
	}

	sess := h.sessions.Lookup(msg.ContactID, msg.Channel)
	if sess == nil {
		sess = h.sessions.Create(msg.ContactID, msg.Channel, h.cfg.Security.SessionMaxAgeSeconds)
		h.log.Info("session_created", audit.Fields{
			Channel:   string(msg.Channel),
			ContactID: msg.ContactID,
			SessionID: sess.ID,
			TraceID:   traceID,
		})
	} else if v := h.sessions.Validate(sess.ID, msg.ContactID, msg.Channel); !v.Valid {
		// The pair index said yes but the binding said no; treat as a
		// fresh conversation rather than failing the message.
		h.log.Warn("session_validation_failed", audit.Fields{
			Channel:   string(msg.Channel),
			ContactID: msg.ContactID,
			SessionID: sess.ID,
			TraceID:   traceID,
			Details:   map[string]any{"reason": v.Reason},
		})
		sess = h.sessions.Create(msg.ContactID, msg.Channel, h.cfg.Security.SessionMaxAgeSeconds)
	}

	h.sessions.AppendTurn(sess.ID, session.Turn{Role: "user", Content: msg.Text, At: msg.Timestamp})

	reply, usage, err := h.converse(ctx, sess)
	if err != nil {
		return h.rejectLLM(msg, sess.ID, traceID, err)
	}

	h.sessions.AppendTurn(sess.ID, session.Turn{Role: "assistant", Content: reply, At: msg.Timestamp})

	if h.store != nil {
		if current := h.sessions.Get(sess.ID); current != nil {
			if err := h.store.Save(current); err != nil {
				h.log.Error("session_persist_failed", audit.Fields{
					SessionID: sess.ID,
					TraceID:   traceID,
					Details:   map[string]any{"error": err.Error()},
				})
			}
		}
	}

	h.log.Info("message_processed", audit.Fields{
		Channel:   string(msg.Channel),
		ContactID: msg.ContactID,
		SessionID: sess.ID,
		TraceID:   traceID,
		Details: map[string]any{
			"patterns_warned": scan.Patterns,
			"input_tokens":    usage[0],
			"output_tokens":   usage[1],
		},
	})

	return model.Allowed(reply, traceID)
}

// converse runs one chat turn, resolving at most one round of tool
// calls through the skill registry.
func (h *Handler) converse(ctx context.Context, sess *session.Session) (string, [2]int, error) {
	history := make([]llm.Message, 0, len(sess.History))
	for _, t := range sess.History {
		history = append(history, llm.Message{Role: t.Role, Content: t.Content})
	}

	var tools []llm.ToolDef
	if h.skills != nil {
		for _, name := range h.skills.List() {
			tools = append(tools, llm.ToolDef{Name: name})
		}
	}

	resp, err := h.llm.Chat(ctx, h.cfg.LLM.SystemPrompt, history, tools)
	if err != nil {
		return "", [2]int{}, err
	}
	usage := [2]int{resp.InputTokens, resp.OutputTokens}

	if len(resp.ToolCalls) > 0 && h.skills != nil {
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			out, err := h.skills.Invoke(ctx, call.Name, call.Args)
			if err != nil {
				if errors.Is(err, skills.ErrIntegrity) {
					return "", usage, err
				}
				results = append(results, llm.ToolResult{CallID: call.ID, Content: err.Error(), IsError: true})
				continue
			}
			results = append(results, llm.ToolResult{CallID: call.ID, Content: out})
		}
		resp, err = h.llm.ContinueWithToolResults(ctx, h.cfg.LLM.SystemPrompt, history, tools, results)
		if err != nil {
			return "", usage, err
		}
		usage[0] += resp.InputTokens
		usage[1] += resp.OutputTokens
	}

	return resp.Text, usage, nil
}

// rejectLLM maps backend failures to user-visible results. No internal
// detail reaches the reply; it goes to the audit log only.
func (h *Handler) rejectLLM(msg model.InboundMessage, sessionID, traceID string, err error) model.GateResult {
	fields := audit.Fields{
		Channel:   string(msg.Channel),
		ContactID: msg.ContactID,
		SessionID: sessionID,
		TraceID:   traceID,
		Details:   map[string]any{"error": err.Error()},
	}

	switch {
	case errors.Is(err, neurorouter.ErrRateLimited):
		h.log.Warn("llm_rate_limited", fields)
		return model.Rejected(StageLLM, "The assistant is busy. Please try again shortly.", false)
	case errors.Is(err, llm.ErrAuth):
		h.log.Critical("llm_auth_failed", fields)
	case errors.Is(err, skills.ErrIntegrity):
		h.log.Critical("skill_integrity_failure", fields)
	default:
		h.log.Error("llm_request_failed", fields)
	}
	return model.Rejected(StageLLM, "Error: assistant unavailable", false)
}

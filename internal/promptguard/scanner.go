// Package promptguard scans inbound text for prompt-injection
// signatures. The scanner itself is stateless; every pattern in the
// fixed table is tested and the verdict is the maximum severity among
// all matches, never just the first.
package promptguard

import (
	"unicode/utf8"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/pii"
)

// previewLen bounds how much of an offending prompt reaches the audit
// log. The full original text is never logged.
const previewLen = 200

// Result is a severity-ranked scan verdict. Safe is true iff Patterns
// is empty; Patterns holds matched names in pattern-definition order.
type Result struct {
	Safe     bool     `json:"safe"`
	Patterns []string `json:"patterns,omitempty"`
	Action   Action   `json:"action"`
}

// Scanner scans prompts and reports matches to the audit log.
type Scanner struct {
	log *audit.Log
}

// NewScanner creates a scanner reporting into log.
func NewScanner(log *audit.Log) *Scanner {
	return &Scanner{log: log}
}

// Scan tests every pattern against text. Any match triggers an audit
// entry carrying the matched names and a PII-redacted preview.
func (s *Scanner) Scan(text string) Result {
	result := Result{Safe: true, Action: ActionAllow}

	for _, p := range patternTable {
		if p.re.MatchString(text) {
			result.Patterns = append(result.Patterns, p.name)
			if severityRank(p.action) > severityRank(result.Action) {
				result.Action = p.action
			}
		}
	}

	if len(result.Patterns) == 0 {
		return result
	}
	result.Safe = false

	preview := pii.Redact(text)
	if len(preview) > previewLen {
		// Back off to a rune boundary so the cut never produces
		// invalid UTF-8 in the audit entry.
		cut := previewLen
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	severity := audit.SeverityWarn
	if result.Action == ActionSuspend {
		severity = audit.SeverityCritical
	}
	s.log.Write(severity, "prompt_injection_detected", audit.Fields{
		Details: map[string]any{
			"patterns": result.Patterns,
			"action":   string(result.Action),
			"preview":  preview,
		},
	})

	return result
}

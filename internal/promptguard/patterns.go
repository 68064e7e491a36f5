package promptguard

import "regexp"

// Action is the verdict a matched pattern escalates to.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionWarn    Action = "warn"
	ActionBlock   Action = "block"
	ActionSuspend Action = "suspend"
)

// severityRank orders actions: suspend > block > warn > allow.
func severityRank(a Action) int {
	switch a {
	case ActionSuspend:
		return 3
	case ActionBlock:
		return 2
	case ActionWarn:
		return 1
	default:
		return 0
	}
}

// pattern is one injection signature. Names are namespaced by family
// (extraction, jailbreak, injection, hijack, exfil, flood, bypass) so
// callers can reason about verdict composition.
type pattern struct {
	name   string
	re     *regexp.Regexp
	action Action
}

// patternTable is the fixed ordered signature list. Every pattern is
// tested against the full text; matched names are collected in this
// order and the reported action is the highest severity among them.
var patternTable = []pattern{
	{
		name:   "extraction.ignore_instructions",
		re:     regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\b[^.\n]{0,30}\b(previous|prior|above|earlier|all)\b[^.\n]{0,30}\b(instructions?|prompts?|rules?|context)\b`),
		action: ActionSuspend,
	},
	{
		name:   "extraction.reveal_system_prompt",
		re:     regexp.MustCompile(`(?i)\b(reveal|show|print|repeat|display|output|tell\s+me)\b[^.\n]{0,40}\b(system\s*prompt|initial\s+instructions?|your\s+instructions?|hidden\s+(?:prompt|instructions?))\b`),
		action: ActionBlock,
	},
	{
		name:   "jailbreak.role_override",
		re:     regexp.MustCompile(`(?i)\byou\s+are\s+(?:now\s+|no\s+longer\s+)`),
		action: ActionBlock,
	},
	{
		name:   "jailbreak.persona",
		re:     regexp.MustCompile(`(?i)\b(DAN|do\s+anything\s+now|AIM|STAN|DUDE|developer\s+mode|jailbr[eo]ken?)\b`),
		action: ActionSuspend,
	},
	{
		name:   "injection.fake_system_block",
		re:     regexp.MustCompile(`(?i)(\[\s*system\s*\]|<\|?\s*system\s*\|?>|<<\s*SYS\s*>>|###\s*system\b|\bend\s+of\s+(?:system\s+)?(?:prompt|instructions)\b)`),
		action: ActionBlock,
	},
	{
		name:   "hijack.output_format",
		re:     regexp.MustCompile(`(?i)\b(respond|reply|answer|output)\s+only\s+(?:with|in|using)\b[^.\n]{0,30}\b(json|base64|hex|code|urls?)\b`),
		action: ActionWarn,
	},
	{
		name:   "exfil.encoding",
		re:     regexp.MustCompile(`(?i)\b(base64|rot13|hex|url)[- ]?(?:encode|decode)\b[^.\n]{0,40}\b(prompt|instructions?|secret|password|key|conversation)\b`),
		action: ActionBlock,
	},
	{
		name:   "injection.script",
		re:     regexp.MustCompile(`(?i)(\beval\s*\(|\bexec\s*\(|\bos\.system\s*\(|subprocess\.|child_process|\brm\s+-rf\s+/)`),
		action: ActionBlock,
	},
	{
		name:   "injection.sql",
		re:     regexp.MustCompile(`(?i)('\s*(?:or|and)\s+'?1'?\s*=\s*'?1|\bunion\s+select\b|;\s*drop\s+table\b)`),
		action: ActionBlock,
	},
	{
		name:   "injection.xss",
		re:     regexp.MustCompile(`(?i)(<script\b|javascript:\s*\S|\bonerror\s*=|document\.cookie)`),
		action: ActionBlock,
	},
	{
		name:   "flood.recursive",
		re:     regexp.MustCompile(`(?i)\b(repeat|say|print)\b[^.\n]{0,20}\b(forever|infinitely|endlessly|\d{4,}\s+times)\b`),
		action: ActionWarn,
	},
	{
		name:   "bypass.safety",
		re:     regexp.MustCompile(`(?i)\b(bypass|disable|turn\s+off|remove|without)\b[^.\n]{0,30}\b(safety|filters?|guardrails?|restrictions?|censorship|limitations?)\b`),
		action: ActionBlock,
	},
	{
		name:   "exfil.markdown_link",
		re:     regexp.MustCompile(`!\[[^\]]*\]\(\s*https?://[^)]+\)`),
		action: ActionBlock,
	},
}

// PatternNames returns the pattern names in definition order.
func PatternNames() []string {
	names := make([]string, len(patternTable))
	for i, p := range patternTable {
		names[i] = p.name
	}
	return names
}

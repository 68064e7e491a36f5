package audit

// Severity levels for audit entries.
const (
	SeverityInfo     = "INFO"
	SeverityWarn     = "WARN"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// Entry is one line in the hash-chained JSONL audit log. Entries are
// immutable once written; the log is append-only. Map keys marshal in
// sorted order, so hashing a marshaled line is deterministic.
type Entry struct {
	Timestamp string         `json:"ts"`
	Severity  string         `json:"severity"`
	Event     string         `json:"event"`
	Channel   string         `json:"channel,omitempty"`
	ContactID string         `json:"contact_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prev_hash"`
}

// Fields carries the optional attributes of an audit call. ContactID
// and every string value inside Details pass through the PII redactor
// before serialization, unconditionally.
type Fields struct {
	Channel   string
	ContactID string
	SessionID string
	TraceID   string
	Details   map[string]any
}

package models

// AuthorKind classifies who (institutionally) wrote a message.
type AuthorKind string

const (
	AuthorTeam    AuthorKind = "team"
	AuthorAdmin   AuthorKind = "admin"
	AuthorSupport AuthorKind = "support"
	AuthorSystem  AuthorKind = "system"
	AuthorUnknown AuthorKind = "unknown"
)

// MessageKind distinguishes ordinary chat from institutional records.
type MessageKind string

const (
	MessageUser     MessageKind = "user"
	MessageSystem   MessageKind = "system"
	MessageNotice   MessageKind = "notice"
	MessageDecision MessageKind = "decision"
)

// Severity grades institutional messages for display emphasis.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message is the strict view-model for a single chat entry.
//
// Invariant: when Kind is not MessageUser the message carries no raw personal
// identity — SenderID is empty and AuthorLabel holds the institutional label
// or a generic fallback. The normalize package enforces this on every record
// crossing the backend boundary.
type Message struct {
	ID     string `json:"id"`
	Thread string `json:"thread"`
	Body   string `json:"body"`

	// CreatedTS is unix ns; zero when the backend omitted it.
	CreatedTS int64 `json:"created_ts,omitempty"`

	// SenderID is the raw identity of the author; empty for institutional
	// messages and when the backend omitted it.
	SenderID string `json:"sender_id,omitempty"`

	// AuthorLabel is the institutional display name ("Match Ops", "[system]").
	AuthorLabel string `json:"author_label,omitempty"`

	AuthorKind AuthorKind  `json:"author_kind"`
	Kind       MessageKind `json:"kind"`
	Severity   Severity    `json:"severity"`

	// Local marks an optimistic placeholder that has not been confirmed by
	// the backend yet. Never persisted.
	Local bool `json:"local,omitempty"`
}

// Institutional reports whether the message renders as an institutional block
// rather than a chat bubble.
func (m Message) Institutional() bool {
	return m.Kind != MessageUser
}

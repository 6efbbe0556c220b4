package models

// ThreadKind tags what a conversation is about. Unrecognized backend values
// normalize to ThreadKindUnknown rather than failing.
type ThreadKind string

const (
	ThreadKindSupport    ThreadKind = "support"
	ThreadKindTournament ThreadKind = "tournament"
	ThreadKindFriendly   ThreadKind = "friendly"
	ThreadKindSystem     ThreadKind = "system"
	ThreadKindAdmin      ThreadKind = "admin"
	ThreadKindUnknown    ThreadKind = "unknown"
)

// ThreadStatus is the lifecycle state of a conversation.
type ThreadStatus string

const (
	ThreadStatusOpen     ThreadStatus = "open"
	ThreadStatusResolved ThreadStatus = "resolved"
	ThreadStatusArchived ThreadStatus = "archived"
	ThreadStatusUnknown  ThreadStatus = "unknown"
)

// SendPermission is the backend's tri-state answer to "may this caller post
// here": explicitly allowed, explicitly disallowed (with a reason on the
// thread), or not stated.
type SendPermission string

const (
	SendAllowed    SendPermission = "allowed"
	SendDisallowed SendPermission = "disallowed"
	SendUnknown    SendPermission = "unknown"
)

// Thread is the strict view-model for a conversation. Instances are only
// produced by the normalize package; every enum field holds a known value.
type Thread struct {
	ID     string       `json:"id"`
	Kind   ThreadKind   `json:"kind"`
	Title  string       `json:"title"`
	Status ThreadStatus `json:"status"`

	CanSend            SendPermission `json:"can_send"`
	SendDisabledReason string         `json:"send_disabled_reason,omitempty"`

	// Unread is never negative.
	Unread int `json:"unread"`

	// LastActivityTS is the most recent message time (unix ns); zero when the
	// backend never reported one.
	LastActivityTS int64 `json:"last_activity_ts,omitempty"`
	// UpdatedTS is the last metadata change (unix ns).
	UpdatedTS int64 `json:"updated_ts,omitempty"`

	// Preview is a short excerpt of the latest message.
	Preview string `json:"preview,omitempty"`

	// ContextLabel names the real-world entity the thread is about, e.g. a
	// tournament. Free text; empty when absent.
	ContextLabel string `json:"context_label,omitempty"`

	// Participants are institutional display labels, never raw identities.
	Participants []string `json:"participants,omitempty"`
}

// ActivityTS returns the timestamp threads sort by: last message time when
// known, else last metadata update, else zero.
func (t Thread) ActivityTS() int64 {
	if t.LastActivityTS != 0 {
		return t.LastActivityTS
	}
	return t.UpdatedTS
}

// AcceptsMessages reports whether the composer should be offered for this
// thread, and when it should not, the reason to show instead. Precedence:
// an explicit backend disallow (with its reason) beats the system-kind and
// archived-status defaults.
func (t Thread) AcceptsMessages() (bool, string) {
	if t.CanSend == SendDisallowed {
		if t.SendDisabledReason != "" {
			return false, t.SendDisabledReason
		}
		return false, "sending is disabled for this conversation"
	}
	if t.Kind == ThreadKindSystem {
		return false, "system conversations are read-only"
	}
	if t.Status == ThreadStatusArchived {
		return false, "this conversation has been archived"
	}
	return true, ""
}

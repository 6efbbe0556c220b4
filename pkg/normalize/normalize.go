// Package normalize converts loosely-shaped backend records into the strict
// view-models in pkg/models. It is the single boundary guard on the read
// path: nothing downstream ever sees a raw backend value.
//
// The functions here never panic and never return an error. A malformed
// entry degrades to a smaller-but-valid result list; a malformed field
// degrades to its documented default.
package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"arenachat/pkg/models"
)

var threadKinds = map[string]models.ThreadKind{
	"support":    models.ThreadKindSupport,
	"tournament": models.ThreadKindTournament,
	"friendly":   models.ThreadKindFriendly,
	"system":     models.ThreadKindSystem,
	"admin":      models.ThreadKindAdmin,
	"unknown":    models.ThreadKindUnknown,
}

var threadStatuses = map[string]models.ThreadStatus{
	"open":     models.ThreadStatusOpen,
	"resolved": models.ThreadStatusResolved,
	"archived": models.ThreadStatusArchived,
	"unknown":  models.ThreadStatusUnknown,
}

var authorKinds = map[string]models.AuthorKind{
	"team":    models.AuthorTeam,
	"admin":   models.AuthorAdmin,
	"support": models.AuthorSupport,
	"system":  models.AuthorSystem,
	"unknown": models.AuthorUnknown,
}

var messageKinds = map[string]models.MessageKind{
	"user":     models.MessageUser,
	"system":   models.MessageSystem,
	"notice":   models.MessageNotice,
	"decision": models.MessageDecision,
}

var severities = map[string]models.Severity{
	"info":     models.SeverityInfo,
	"warning":  models.SeverityWarning,
	"critical": models.SeverityCritical,
}

// Threads converts an arbitrary value into thread view-models. Entries that
// are not keyed records, or that lack a non-empty string id, are skipped.
func Threads(v any) []models.Thread {
	out := make([]models.Thread, 0)
	for _, rec := range records(v) {
		t, ok := Thread(rec)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Thread normalizes a single keyed record. ok is false when the record has
// no usable identity.
func Thread(rec map[string]any) (models.Thread, bool) {
	id := str(rec, "id")
	if id == "" {
		return models.Thread{}, false
	}
	t := models.Thread{
		ID:             id,
		Kind:           threadKind(str(rec, "kind")),
		Title:          str(rec, "title"),
		Status:         threadStatus(str(rec, "status")),
		Unread:         count(rec["unread"]),
		LastActivityTS: ts(rec, "last_activity_ts", "last_message_ts"),
		UpdatedTS:      ts(rec, "updated_ts"),
		Preview:        preview(rec),
		ContextLabel:   contextLabel(rec),
		Participants:   participants(rec["participants"]),
	}
	t.CanSend, t.SendDisabledReason = sendPermission(rec)
	return t, true
}

// Messages converts an arbitrary value into message view-models, skipping
// anything that is not a keyed record with an id.
func Messages(v any) []models.Message {
	out := make([]models.Message, 0)
	for _, rec := range records(v) {
		m, ok := Message(rec)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Message normalizes a single keyed record and enforces the institutional
// attribution invariant: non-user messages never carry a raw sender id.
func Message(rec map[string]any) (models.Message, bool) {
	id := str(rec, "id")
	if id == "" {
		return models.Message{}, false
	}
	m := models.Message{
		ID:          id,
		Thread:      str(rec, "thread"),
		Body:        body(rec["body"]),
		CreatedTS:   ts(rec, "created_ts", "ts"),
		SenderID:    str(rec, "sender_id", "sender", "author"),
		AuthorLabel: str(rec, "author_label", "author_name"),
		AuthorKind:  authorKind(str(rec, "author_kind")),
		Kind:        messageKind(str(rec, "kind")),
		Severity:    severity(str(rec, "severity")),
	}
	if b, ok := rec["local"].(bool); ok {
		m.Local = b
	}
	if m.Kind != models.MessageUser {
		m.SenderID = ""
		if m.AuthorLabel == "" {
			if m.AuthorKind == models.AuthorTeam {
				m.AuthorLabel = "[participant]"
			} else {
				m.AuthorLabel = "[system]"
			}
		}
	}
	return m, true
}

// records coerces the input into a slice of keyed records. A single record
// is treated as a one-element list; anything else yields nil.
func records(v any) []map[string]any {
	switch vv := v.(type) {
	case []map[string]any:
		return vv
	case map[string]any:
		return []map[string]any{vv}
	case []any:
		out := make([]map[string]any, 0, len(vv))
		for _, e := range vv {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func threadKind(s string) models.ThreadKind {
	if k, ok := threadKinds[fold(s)]; ok {
		return k
	}
	return models.ThreadKindUnknown
}

func threadStatus(s string) models.ThreadStatus {
	if st, ok := threadStatuses[fold(s)]; ok {
		return st
	}
	return models.ThreadStatusUnknown
}

func authorKind(s string) models.AuthorKind {
	if k, ok := authorKinds[fold(s)]; ok {
		return k
	}
	return models.AuthorUnknown
}

func messageKind(s string) models.MessageKind {
	if k, ok := messageKinds[fold(s)]; ok {
		return k
	}
	return models.MessageUser
}

func severity(s string) models.Severity {
	if sv, ok := severities[fold(s)]; ok {
		return sv
	}
	return models.SeverityInfo
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// str returns the first trimmed string value found under the given keys.
func str(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// count validates a numeric value as a finite number and floors it to a
// non-negative int. Anything else (strings included) is zero.
func count(v any) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	return int(math.Floor(f))
}

// ts reads a timestamp under the given keys: numbers pass through as unix
// nanoseconds, RFC 3339 strings are parsed, everything else is zero.
func ts(rec map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch n := rec[k].(type) {
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) && n > 0 {
				return int64(n)
			}
		case int64:
			if n > 0 {
				return n
			}
		case int:
			if n > 0 {
				return int64(n)
			}
		case json.Number:
			if i, err := n.Int64(); err == nil && i > 0 {
				return i
			}
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(n)); err == nil {
				return t.UTC().UnixNano()
			}
		}
	}
	return 0
}

// body accepts a plain string or the stored {"text": ...} object shape.
func body(v any) string {
	switch b := v.(type) {
	case string:
		return b
	case map[string]any:
		if s, ok := b["text"].(string); ok {
			return s
		}
	}
	return ""
}

const previewMax = 80

func preview(rec map[string]any) string {
	if p := str(rec, "preview"); p != "" {
		return p
	}
	// fall back to the embedded last message, when the backend sent one
	if lm, ok := rec["last_message"].(map[string]any); ok {
		if b := body(lm["body"]); b != "" {
			return truncate(b, previewMax)
		}
		if b := body(lm); b != "" {
			return truncate(b, previewMax)
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// contextLabel unwraps the optional context structure field by field:
// a flat label, a plain string, or a nested object with a label-ish key.
func contextLabel(rec map[string]any) string {
	if s := str(rec, "context_label"); s != "" {
		return s
	}
	switch c := rec["context"].(type) {
	case string:
		return strings.TrimSpace(c)
	case map[string]any:
		return str(c, "label", "name", "title")
	}
	return ""
}

// participants keeps only usable display labels; absence yields an empty
// list, never an error.
func participants(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok2 := v.([]string); ok2 {
			out := make([]string, 0, len(ss))
			for _, s := range ss {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch p := it.(type) {
		case string:
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := str(p, "label", "name"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// sendPermission maps the backend's can_send field (bool or enum string)
// onto the tri-state permission, carrying the disallow reason along.
func sendPermission(rec map[string]any) (models.SendPermission, string) {
	reason := str(rec, "send_disabled_reason")
	switch v := rec["can_send"].(type) {
	case bool:
		if v {
			return models.SendAllowed, ""
		}
		return models.SendDisallowed, reason
	case string:
		switch fold(v) {
		case "allowed", "true":
			return models.SendAllowed, ""
		case "disallowed", "false":
			return models.SendDisallowed, reason
		}
	}
	return models.SendUnknown, reason
}

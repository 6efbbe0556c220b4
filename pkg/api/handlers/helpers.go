package handlers

import (
	"net/http"

	"arenachat/pkg/auth"
	"arenachat/pkg/cache"
	"arenachat/pkg/delivery"
	"arenachat/pkg/errfmt"
	"arenachat/pkg/utils"
)

var (
	sender       *delivery.Sender
	messageCache *cache.Messages
	devMode      bool
	retentionRun func() error
)

// Configure injects the shared pipeline state handlers operate on. Must be
// called before the routes are registered.
func Configure(s *delivery.Sender, c *cache.Messages, dev bool) {
	sender = s
	messageCache = c
	devMode = dev
}

// SetRetentionRunner wires the admin-triggered purge. Optional.
func SetRetentionRunner(fn func() error) {
	retentionRun = fn
}

// writeFormatted renders any error-like value through the error formatter:
// the primary message always, debug detail only in development mode.
func writeFormatted(w http.ResponseWriter, status int, v any) {
	f := errfmt.Format(v, devMode)
	if f.Debug != "" {
		_ = utils.JSONWrite(w, status, f)
		return
	}
	utils.JSONError(w, status, f.Message)
}

// resolveViewer resolves the acting participant for a request: the sender
// identity (signature-verified or backend-supplied) plus the author kind
// derived from the caller's API-key role.
func resolveViewer(r *http.Request, bodySender, bodyLabel string) (delivery.Viewer, int, string) {
	id, status, msg := auth.ResolveSenderFromRequest(r, bodySender)
	if status != 0 {
		return delivery.Viewer{}, status, msg
	}
	return delivery.Viewer{ID: id, Label: bodyLabel, Kind: auth.ViewerKind(r)}, 0, ""
}

// looseLen counts candidate records in an arbitrary decoded JSON value, for
// reporting how many were dropped during normalization.
func looseLen(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case []any:
		return len(t)
	case map[string]any:
		return 1
	default:
		return 1
	}
}

func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-Role-Name") == "admin"
}

func isBackend(r *http.Request) bool {
	role := r.Header.Get("X-Role-Name")
	return role == "backend" || role == "admin"
}

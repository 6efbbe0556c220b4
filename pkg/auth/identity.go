package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"arenachat/pkg/config"
	"arenachat/pkg/logger"
	"arenachat/pkg/utils"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

type ctxSenderKey struct{}

// RequireSignedSender verifies HMAC signature headers and injects the
// verified sender id into the request context. Backend and admin callers
// may omit the signature; everyone else must present one.
func RequireSignedSender(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if (role == "backend" || role == "admin") && sig == "" {
			// trusted caller without signature; handlers may take the sender
			// from the body or X-User-ID header
			next.ServeHTTP(w, r)
			return
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSenderKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SenderIDFromContext returns the signature-verified sender id or empty
// string.
func SenderIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxSenderKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func validateSender(a string) (bool, string) {
	if a == "" {
		return false, "sender required"
	}
	if len(a) > 128 {
		return false, "sender too long"
	}
	return true, ""
}

// ResolveSenderFromRequest is the single canonical resolver handlers should
// call. A signature-verified sender is authoritative; any conflicting sender
// provided via header, body or query causes a 403. Without a signature,
// backend/admin roles may supply a sender via body, X-User-ID header, or
// query; frontend callers get a 401.
func ResolveSenderFromRequest(r *http.Request, bodySender string) (string, int, string) {
	if id := SenderIDFromContext(r.Context()); id != "" {
		if q := strings.TrimSpace(r.URL.Query().Get("sender")); q != "" && q != id {
			logger.Warn("sender_mismatch_signature_query", "signature", id, "query", q, "path", r.URL.Path)
			return "", http.StatusForbidden, "sender mismatch between signature and query param"
		}
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" && h != id {
			logger.Warn("sender_mismatch_signature_header", "signature", id, "header", h, "path", r.URL.Path)
			return "", http.StatusForbidden, "sender mismatch between signature and header"
		}
		if bodySender != "" && bodySender != id {
			logger.Warn("sender_mismatch_signature_body", "signature", id, "body", bodySender, "path", r.URL.Path)
			return "", http.StatusForbidden, "sender mismatch between signature and body sender"
		}
		return id, 0, ""
	}

	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		for _, candidate := range []string{bodySender, strings.TrimSpace(r.Header.Get("X-User-ID")), strings.TrimSpace(r.URL.Query().Get("sender"))} {
			if candidate == "" {
				continue
			}
			if ok, msg := validateSender(candidate); !ok {
				logger.Warn("invalid_backend_sender", "user", candidate, "path", r.URL.Path)
				return "", http.StatusBadRequest, msg
			}
			return candidate, 0, ""
		}
		logger.Warn("backend_missing_sender", "remote", r.RemoteAddr, "path", r.URL.Path)
		return "", http.StatusBadRequest, "sender required for backend requests"
	}

	logger.Warn("missing_sender_signature", "role", role, "path", r.URL.Path)
	return "", http.StatusUnauthorized, "missing or invalid sender signature"
}

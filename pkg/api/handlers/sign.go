package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"arenachat/pkg/logger"
	"arenachat/pkg/utils"
)

// RegisterSigning registers the signing endpoint. Trusted backends call it
// to mint the per-user HMAC signature their frontend clients attach to
// sends; the caller's API key is the signing secret.
func RegisterSigning(r *mux.Router) {
	r.HandleFunc("/_sign", signHandler).Methods(http.MethodPost)
}

func signHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	role := r.Header.Get("X-Role-Name")
	if role != "backend" {
		logger.Warn("sign_forbidden", "role", role, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	// the signing secret is whichever API key the caller authenticated with
	auth := r.Header.Get("Authorization")
	var key string
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		key = strings.TrimSpace(auth[7:])
	}
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		logger.Warn("sign_missing_api_key", "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload.UserID))
	sig := hex.EncodeToString(mac.Sum(nil))
	_ = json.NewEncoder(w).Encode(map[string]string{"user_id": payload.UserID, "signature": sig})
}

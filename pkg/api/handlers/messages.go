package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"arenachat/pkg/auth"
	"arenachat/pkg/delivery"
	"arenachat/pkg/logger"
	"arenachat/pkg/store"
	"arenachat/pkg/telemetry"
	"arenachat/pkg/utils"
	"arenachat/pkg/view"
)

// RegisterMessages registers the per-thread message view and send routes.
// Sends require a signed sender (or a trusted backend caller); the read
// side works with or without one.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/threads/{id}/messages", listThreadMessages).Methods(http.MethodGet)
	r.Handle("/threads/{id}/messages", auth.RequireSignedSender(http.HandlerFunc(sendThreadMessage))).Methods(http.MethodPost)
}

// listThreadMessages serves the composed message view for one thread:
// chronological items with bubble/institutional split, the pinned critical
// notices, and the composer gate.
func listThreadMessages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["id"]
	th, err := store.GetThread(id)
	if err != nil {
		writeFormatted(w, http.StatusNotFound, err)
		return
	}

	// pull the latest list into the cache; on failure fall back to what we
	// have cached so a flaky store read degrades instead of erroring
	if err := sender.Refresh(r.Context(), id); err != nil {
		logger.Warn("messages_refresh_failed", "thread", id, "error", err)
	}
	msgs := messageCache.Get(id)

	viewer := view.Viewer{
		ID:   strings.TrimSpace(r.Header.Get("X-User-ID")),
		Kind: auth.ViewerKind(r),
	}
	if signed := auth.SenderIDFromContext(r.Context()); signed != "" {
		viewer.ID = signed
	}

	composed := view.Compose(th, msgs, viewer)
	logger.Debug("messages_view", "thread", id, "items", len(composed.Items), "pinned", len(composed.Pinned))
	_ = json.NewEncoder(w).Encode(struct {
		Thread     string      `json:"thread"`
		Items      []view.Item `json:"items"`
		Pinned     []view.Item `json:"pinned"`
		CanCompose bool        `json:"can_compose"`
		Notice     string      `json:"notice,omitempty"`
	}{
		Thread:     id,
		Items:      composed.Items,
		Pinned:     composed.Pinned,
		CanCompose: composed.CanCompose,
		Notice:     composed.Notice,
	})
}

// sendThreadMessage runs one optimistic send. Validation failures come back
// synchronously; backend failures surface through the error formatter after
// the cache has been rolled back.
func sendThreadMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["id"]

	var payload struct {
		Content     string `json:"content"`
		Sender      string `json:"sender"`
		SenderLabel string `json:"sender_label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	viewer, status, msg := resolveViewer(r, payload.Sender, payload.SenderLabel)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	saved, err := sender.Send(r.Context(), id, viewer, payload.Content)
	if err != nil {
		var disabled *delivery.SendDisabledError
		switch {
		case errors.Is(err, delivery.ErrEmptyBody):
			utils.JSONError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &disabled):
			utils.JSONError(w, http.StatusForbidden, disabled.Reason)
		default:
			telemetry.SendsRolledBack.Inc()
			writeFormatted(w, http.StatusBadGateway, err)
		}
		return
	}

	telemetry.MessagesSent.Inc()
	logger.AuditEvent("message_sent", "thread", id, "message", saved.ID, "sender", viewer.ID)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(saved)
}

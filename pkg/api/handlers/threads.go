package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"arenachat/pkg/logger"
	"arenachat/pkg/normalize"
	"arenachat/pkg/store"
	"arenachat/pkg/telemetry"
	"arenachat/pkg/utils"
	"arenachat/pkg/view"
)

// RegisterThreads registers thread collection and import routes.
func RegisterThreads(r *mux.Router) {
	r.HandleFunc("/threads", createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads", listThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", deleteThread).Methods(http.MethodDelete)
	r.HandleFunc("/import", importRecords).Methods(http.MethodPost)
}

// createThread accepts a loosely-shaped thread record, normalizes it, and
// persists the strict form. Records that cannot be normalized are rejected,
// not stored half-shaped.
func createThread(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	rec, ok := raw.(map[string]any)
	if !ok {
		telemetry.RecordsDropped.Inc()
		utils.JSONError(w, http.StatusBadRequest, "thread must be an object")
		return
	}
	if _, has := rec["id"]; !has {
		rec["id"] = uuid.NewString()
	}
	th, ok := normalize.Thread(rec)
	if !ok {
		telemetry.RecordsDropped.Inc()
		utils.JSONError(w, http.StatusBadRequest, "thread record not usable")
		return
	}
	saved, err := store.SaveThread(th)
	if err != nil {
		writeFormatted(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("thread_created", "thread", saved.ID, "kind", saved.Kind)
	_ = json.NewEncoder(w).Encode(saved)
}

// listThreads returns the grouped thread view: conversations first, system
// threads subordinate, both ordered by most recent activity. Supports
// ?kind= and ?q= filters.
func listThreads(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	threads, err := store.ListThreads()
	if err != nil {
		writeFormatted(w, http.StatusInternalServerError, err)
		return
	}
	f := view.Filter{
		Kind:  r.URL.Query().Get("kind"),
		Query: r.URL.Query().Get("q"),
	}
	g := view.Group(threads, f)
	logger.Debug("threads_list", "conversations", len(g.Conversations), "system", len(g.System))
	_ = json.NewEncoder(w).Encode(g)
}

func getThread(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["id"]
	th, err := store.GetThread(id)
	if err != nil {
		writeFormatted(w, http.StatusNotFound, err)
		return
	}
	_ = json.NewEncoder(w).Encode(th)
}

func deleteThread(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isBackend(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := store.GetThread(id); err != nil {
		writeFormatted(w, http.StatusNotFound, err)
		return
	}
	if err := store.DeleteThread(id); err != nil {
		writeFormatted(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("thread_deleted_via_api", "thread", id)
	w.WriteHeader(http.StatusNoContent)
}

// importRecords bulk-loads loosely-shaped thread and message records, the
// shape backfills and external integrations deliver them in. Unusable
// entries are skipped and counted, never fatal.
func importRecords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isBackend(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	var payload struct {
		Threads  any `json:"threads"`
		Messages any `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	threads := normalize.Threads(payload.Threads)
	msgs := normalize.Messages(payload.Messages)
	dropped := (looseLen(payload.Threads) - len(threads)) + (looseLen(payload.Messages) - len(msgs))
	if dropped > 0 {
		telemetry.RecordsDropped.Add(float64(dropped))
	}

	savedThreads := 0
	for _, th := range threads {
		if _, err := store.SaveThread(th); err != nil {
			logger.Warn("import_thread_failed", "thread", th.ID, "error", err)
			continue
		}
		savedThreads++
	}
	savedMsgs := 0
	for _, m := range msgs {
		if m.Thread == "" {
			dropped++
			telemetry.RecordsDropped.Inc()
			continue
		}
		if _, err := store.SaveMessage(m); err != nil {
			logger.Warn("import_message_failed", "thread", m.Thread, "error", err)
			continue
		}
		savedMsgs++
	}

	logger.Info("import_done", "threads", savedThreads, "messages", savedMsgs, "dropped", dropped)
	_ = json.NewEncoder(w).Encode(struct {
		Threads  int `json:"threads"`
		Messages int `json:"messages"`
		Dropped  int `json:"dropped"`
	}{Threads: savedThreads, Messages: savedMsgs, Dropped: dropped})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"arenachat/pkg/logger"
	"arenachat/pkg/store"
	"arenachat/pkg/telemetry"
	"arenachat/pkg/utils"
)

// RegisterAdmin registers admin-only routes onto the admin subrouter.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/health", adminHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", adminStats).Methods(http.MethodGet)
	r.HandleFunc("/keys", adminListKeys).Methods(http.MethodGet)
	r.HandleFunc("/keys/{key:.*}", adminGetKey).Methods(http.MethodGet)
	r.HandleFunc("/retention/run", adminRunRetention).Methods(http.MethodPost)
}

func adminHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "store_ready": store.Ready()})
}

func adminStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	s := store.GetStats()
	telemetry.StoreDiskBytes.Set(float64(s.DiskBytes))
	_ = json.NewEncoder(w).Encode(struct {
		DiskBytes uint64 `json:"disk_bytes"`
		Threads   int    `json:"threads"`
	}{DiskBytes: s.DiskBytes, Threads: s.Threads})
}

func adminListKeys(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	keys, err := store.ListKeys(prefix)
	if err != nil {
		writeFormatted(w, http.StatusInternalServerError, err)
		return
	}
	_ = json.NewEncoder(w).Encode(struct {
		Keys []string `json:"keys"`
	}{Keys: keys})
}

func adminGetKey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	key := mux.Vars(r)["key"]
	v, err := store.GetKey(key)
	if err != nil {
		writeFormatted(w, http.StatusNotFound, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"key": key, "value": v})
}

func adminRunRetention(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	if retentionRun == nil {
		utils.JSONError(w, http.StatusConflict, "retention not configured")
		return
	}
	if err := retentionRun(); err != nil {
		writeFormatted(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("retention_run_triggered", "by", "admin_api")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

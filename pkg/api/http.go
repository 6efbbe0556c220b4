// Package api assembles the HTTP surface: thread and message routes, the
// bulk import endpoint, the signing helper, admin routes, and the live
// websocket feed.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"arenachat/pkg/api/handlers"
	"arenachat/pkg/cache"
	"arenachat/pkg/delivery"
)

// Deps carries the shared state the handlers operate on.
type Deps struct {
	Sender *delivery.Sender
	Cache  *cache.Messages
	Hub    *Hub
	// Dev exposes debug detail in formatted error responses.
	Dev bool
	// RetentionRun, when set, backs the admin retention trigger.
	RetentionRun func() error
	// MaxBodyBytes caps request bodies; zero means no explicit cap.
	MaxBodyBytes int64
}

// Handler builds the /v1 router.
func Handler(d Deps) http.Handler {
	handlers.Configure(d.Sender, d.Cache, d.Dev)
	handlers.SetRetentionRunner(d.RetentionRun)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterThreads(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterSigning(v1)
	handlers.RegisterAdmin(v1.PathPrefix("/admin").Subrouter())
	if d.Hub != nil {
		v1.HandleFunc("/stream", d.Hub.ServeWS).Methods(http.MethodGet)
	}

	if d.MaxBodyBytes > 0 {
		return limitBody(d.MaxBodyBytes, r)
	}
	return r
}

func limitBody(max int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, max)
		}
		next.ServeHTTP(w, r)
	})
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"fillsession/pkg/api/handlers"
	"fillsession/pkg/session"
	"fillsession/pkg/store"
)

// Handler returns the versioned JSON API router. Auth and telemetry
// middlewares are layered on by the caller so tests can mount the bare
// router with a context-injected owner.
func Handler(st *session.Store) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterSessions(v1, st)
	return r
}

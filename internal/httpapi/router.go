package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bitespeed/identity-reconciler/internal/logging"
	"github.com/bitespeed/identity-reconciler/internal/reconcile"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

// NewRouter wires /identify and /health behind the request-id and
// logging middleware, following the teacher's flat gorilla/mux setup.
func NewRouter(s store.Store, r *reconcile.Reconciler, log logging.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(log))

	router.Handle("/identify", NewIdentifyHandler(r, log)).Methods(http.MethodPost)
	router.Handle("/health", NewHealthHandler(s)).Methods(http.MethodGet)

	return router
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bitespeed/identity-reconciler/internal/logging"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// requestIDMiddleware stamps every request with a correlation id,
// attached to both the context (for the logging middleware) and a
// response header, the way Notifuse/notifuse's HTTP layer does.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(req.Context(), requestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// loggingMiddleware logs one line per request, including the
// correlation id, matching the structured-logging ambient stack of
// SPEC_FULL.md.
func loggingMiddleware(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			log.WithFields(map[string]interface{}{
				"request_id": requestIDFrom(req.Context()),
				"method":     req.Method,
				"path":       req.URL.Path,
			}).Info("handled request")
		})
	}
}

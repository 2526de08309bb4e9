package middleware

import (
	"net/http"

	"mdbrowse/internal/httputil"

	"github.com/google/uuid"
)

// RequestID assigns every request a unique ID, echoed in the X-Request-ID
// response header and in error envelopes. An inbound X-Request-ID is
// honored so callers can correlate retries.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, httputil.WithRequestID(r, id))
	})
}

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"qfront/internal/domain"
)

// maxRequestIDLen bounds client-supplied IDs before they reach logs and the
// history table.
const maxRequestIDLen = 128

// RequestID assigns a request ID to each request. An incoming X-Request-ID
// header is reused when present and short enough; otherwise a new UUID is
// generated. The ID is echoed in the response header and stored in the
// request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(domain.WithRequestID(r.Context(), id)))
	})
}

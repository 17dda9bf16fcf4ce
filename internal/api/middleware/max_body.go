package middleware

import (
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
)

const MessageBodyTooLarge = "Request body too large"

// MaxBodyBytes rejects requests whose declared length exceeds limit and caps
// the body reader for the rest. A non-positive limit disables the check.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, MessageBodyTooLarge, "request body exceeds the size limit")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

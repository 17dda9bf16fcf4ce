package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// Recover turns a handler panic into the generic 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := fmt.Errorf("panic: %v", rec)
			slog.Error("handler panic",
				"error", err,
				"request_id", GetRequestID(r.Context()),
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			telemetry.CaptureError(r.Context(), err)
			api.HandleError(w, err)
		}()

		next.ServeHTTP(w, r)
	})
}

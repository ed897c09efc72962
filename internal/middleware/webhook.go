package middleware

import (
	"net/http"
	"strings"
)

// WebhookBody caps inbound webhook bodies at maxBytes and only lets POST
// requests with a JSON, or unspecified, content type through.
func WebhookBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", http.MethodPost)
				writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, "expected a JSON payload")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

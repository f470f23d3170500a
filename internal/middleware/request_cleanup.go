package middleware

import (
	"io"
	"net/http"
)

// drained bodies above this size are left for the server to close the connection on
const maxDrainBytes = 256 * 1024

// DrainAndCloseRequest reads what a handler left of the request body, so the
// connection can be reused, and closes it.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}

// Package companion provides the HTTP remote control API of the player.
package companion

import (
	"crypto/subtle"
	"net/http"
)

// TokenHeader is the header carrying the control token.
const TokenHeader = "X-Plex-Token"

// RequireToken wraps next so that requests without the expected token are rejected.
// The token may also be passed as the X-Plex-Token query parameter.
// An empty token disables the check.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(TokenHeader)
		if got == "" {
			got = r.URL.Query().Get(TokenHeader)
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

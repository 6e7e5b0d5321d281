package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// SecretGate admits requests carrying secret either as the X-API-Key
// header or as the basic-auth password. An empty secret admits everything.
func SecretGate(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				if _, pass, ok := r.BasicAuth(); ok {
					presented = pass
				}
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				hlog.FromRequest(r).Warn().Str("path", r.URL.Path).Msg("unauthorized request")
				w.Header().Set("WWW-Authenticate", `Basic realm="sonosctl"`)
				writeJSON(w, http.StatusUnauthorized, response{Message: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/baharkarakas/paycore/internal/api/httpx"
)

const APIKeyHeader = "x-api-key"

// APIKey guards server-to-server routes with a shared secret. An empty secret
// rejects every request.
func APIKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid api key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package httpapi

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-Pipeline-API-Key"

// requireAPIKey compares the request's API key header to want in constant
// time (spec.md §6: "API key comparison MUST be constant-time"). An empty
// want is a misconfiguration the caller must have already rejected at
// startup in production; here it simply denies every request.
func requireAPIKey(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if want == "" || !constantTimeEqual(got, want) {
				writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

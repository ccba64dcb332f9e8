package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AstroPony/KlusQuest/internal/auth"
)

// TokenValidator resolves a bearer token to a caller. The real resolution
// lives in the surrounding application's identity layer; this engine only
// consumes the result.
type TokenValidator interface {
	Validate(token string) (auth.Caller, bool)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved caller in the request context.
func RequireAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}
			caller, ok := v.Validate(token)
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

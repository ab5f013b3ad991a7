package providers

import (
	"context"
	"net/http"
	"strings"
	"tally/internal/structures"
)

const callerKey contextKey = "caller"

// CallerFromContext returns the authenticated user key, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey).(string)
	return v, ok && v != ""
}

func WithCaller(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, callerKey, key)
}

// AuthMiddleware resolves "Authorization: Bearer <token>" against the configured
// token table. With auth disabled every request passes through anonymously.
func AuthMiddleware(conf *structures.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if !conf.Auth.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			key, ok := conf.Auth.Tokens[token]
			if token == "" || !ok || key == "" {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), key)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

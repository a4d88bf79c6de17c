package middleware

import (
	"context"
	"net/http"

	goPasskey "github.com/karmoybt/goPasskey"
)

type sessionContextKey struct{}

// SessionFromContext returns the validated session injected by
// [SessionGuard].
func SessionFromContext(ctx context.Context) (*goPasskey.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*goPasskey.SessionInfo)
	return info, ok
}

// SessionGuard rejects requests without a valid session cookie and injects
// the validated [goPasskey.SessionInfo] into the request context.
func SessionGuard(engine *goPasskey.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			info, err := engine.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

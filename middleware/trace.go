package middleware

import (
	"net/http"

	"github.com/google/uuid"

	goPasskey "github.com/karmoybt/goPasskey"
)

// TraceHeader carries the request correlation id.
const TraceHeader = "X-Trace-Id"

// Trace assigns each request a trace id (reusing an inbound header when
// present), echoes it on the response, and threads it plus the client IP and
// user agent through the request context for audit events.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)

		ctx := goPasskey.WithTraceID(r.Context(), traceID)
		ctx = goPasskey.WithClientIP(ctx, clientIP(r))
		ctx = goPasskey.WithUserAgent(ctx, r.UserAgent())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package clientip

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

// Middleware stores the client address in the request context.
func Middleware(next http.Handler) http.Handler {
	return Resolver(DefaultHeaders...)(next)
}

// Resolver is like Middleware but consults only the given headers.
// With no headers the connection address is always used.
func Resolver(headers ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithContext(r.Context(), resolve(r, headers))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LogExtractor adds the client address to every record logged with the
// request context.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		ip := FromContext(ctx)
		if ip == "" {
			return slog.Attr{}, false
		}
		return slog.String("client_ip", ip), true
	}
}

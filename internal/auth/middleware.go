package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nothing else can read
// or shadow the value.
type contextKey string

const requestContextKey contextKey = "requestContext"

// Credentials is a middleware that captures the request's bearer token and
// auth cookie into a RequestContext stored on the request context.
//
// It never rejects a request: deciding whether the credentials are good is
// the service's job (see Authenticate), because each protected operation
// also has its own preconditions.
func Credentials(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := RequestContextFrom(r, cookieName)
			ctx := context.WithValue(r.Context(), requestContextKey, rc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContextFromContext returns the credentials captured by Credentials.
// Without the middleware it returns an empty RequestContext, which
// Authenticate rejects as missing.
func RequestContextFromContext(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextKey).(RequestContext)
	return rc
}

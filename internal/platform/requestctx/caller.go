// Package requestctx carries the authenticated caller through request
// handling. The auth middleware writes the caller once per request;
// handlers and stores read it without threading an extra parameter.
package requestctx

import "context"

type callerKey struct{}

// WithUserID returns a context carrying the authenticated caller's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, userID)
}

// UserIDFromContext reports the authenticated caller's ID, or the empty
// string for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(callerKey{}).(string)
	return userID
}

// Authenticated reports whether the request carries a resolved caller.
func Authenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

package users

import "context"

var tokenCtxKey = &contextKey{"token"}

type contextKey struct {
	name string
}

// WithToken sets the verified bearer token in the given context
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

// TokenFromContext finds the verified bearer token from the context.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(*Token)
	return raw, ok
}

// SubjectFromStdContext returns the authenticated username carried by
// the context, for code that runs below the router layer.
func SubjectFromStdContext(ctx context.Context) (string, bool) {
	token, ok := TokenFromContext(ctx)
	if !ok || token.Subject == "" {
		return "", false
	}
	return token.Subject, true
}

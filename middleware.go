package users

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
)

// ContextKeySubject is the locals key the auth middleware stores the
// verified token subject under.
const ContextKeySubject = "users:subject"

const authScheme = "Bearer"

// RequireAuth guards a route group with bearer-token auth: it pulls
// the Authorization header, verifies the compact token and stashes the
// subject in the request locals. Invalid or missing tokens never reach
// the handler.
func RequireAuth(tokens *TokenProvider, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = defaultAuthErrorHandler
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw, ok := extractBearer(c.GetString("Authorization", ""))
			if !ok {
				return errorHandler(c, ErrTokenMalformed)
			}

			token, err := tokens.Decode(raw)
			if err != nil {
				return errorHandler(c, err)
			}

			c.Locals(ContextKeySubject, token.Subject)
			c.SetContext(WithToken(c.Context(), token))
			return next(c)
		}
	}
}

// SubjectFromContext returns the authenticated username stored by
// RequireAuth.
func SubjectFromContext(c router.Context) (string, bool) {
	subject, ok := c.Locals(ContextKeySubject).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

func extractBearer(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func defaultAuthErrorHandler(c router.Context, err error) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse(errorMessage(err)))
}

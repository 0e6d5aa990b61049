package users

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by the rich errors below. The HTTP layer maps on
// these rather than on messages, so the taxonomy stays deterministic.
const (
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeAgeNotAllowed      = "AGE_NOT_ALLOWED"
	TextCodeInvalidDateRange   = "INVALID_DATE_RANGE"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidToken       = "INVALID_TOKEN"
)

// ErrInvalidCredentials is returned for both unknown usernames and
// wrong passwords. The two cases must stay indistinguishable.
var ErrInvalidCredentials = goerrors.New("Invalid username/password supplied", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired marks a bearer token past its expiry claim.
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, wrong issuers and tokens we
// cannot parse at all.
var ErrTokenMalformed = goerrors.New("authentication token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// NewUsernameTakenError reports a username collision at create or
// update time.
func NewUsernameTakenError(username string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("Username %s is already in use", username), goerrors.CategoryConflict).
		WithTextCode(TextCodeUsernameTaken).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"username": username})
}

// NewAgeNotAllowedError reports a birth date younger than the
// configured minimum age.
func NewAgeNotAllowedError(minAge int) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("Min age must be equal or higher than %d", minAge), goerrors.CategoryValidation).
		WithTextCode(TextCodeAgeNotAllowed).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"min_age": minAge})
}

// NewInvalidDateRangeError reports a birth-date query whose lower bound
// falls after its upper bound. Dates render as yyyy-mm-dd, matching the
// query parameters the range came from.
func NewInvalidDateRangeError(from, to string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("Date %s is not later than %s", to, from), goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidDateRange).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"from": from, "to": to})
}

func hasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

// IsUsernameTaken reports whether err is a username collision.
func IsUsernameTaken(err error) bool { return hasTextCode(err, TextCodeUsernameTaken) }

// IsAgeNotAllowed reports whether err is a minimum-age violation.
func IsAgeNotAllowed(err error) bool { return hasTextCode(err, TextCodeAgeNotAllowed) }

// IsInvalidDateRange reports whether err is a malformed query range.
func IsInvalidDateRange(err error) bool { return hasTextCode(err, TextCodeInvalidDateRange) }

// IsInvalidCredentials reports whether err is a sign-in failure.
func IsInvalidCredentials(err error) bool { return hasTextCode(err, TextCodeInvalidCredentials) }

// IsInvalidToken reports whether err is a token verification failure.
func IsInvalidToken(err error) bool { return hasTextCode(err, TextCodeInvalidToken) }

// errorMessage prefers the rich error message over the decorated
// Error() rendering so response bodies stay stable.
func errorMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Message
	}
	return err.Error()
}

// isStorageConflict sniffs constraint and serialization failures the
// store surfaces when the uniqueness race loses.
func isStorageConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "could not serialize")
}

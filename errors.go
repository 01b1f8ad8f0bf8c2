package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// TextCodes give API clients a stable, machine readable failure reason.
const (
	TextCodeUserExists       = "USER_EXISTS"
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeTokenSignature   = "TOKEN_SIGNATURE"
	TextCodeTokenRevoked     = "TOKEN_REVOKED"
	TextCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	TextCodeEmptyPassword    = "EMPTY_PASSWORD"
	TextCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// ErrUserExists signals a signup against an already registered email.
var ErrUserExists = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeUserExists)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password so callers cannot enumerate registered accounts.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired means the token was once valid but its exp claim passed.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed means we could not decode the token structure at all.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature means the payload decoded but the signature does not
// verify under the configured key.
var ErrTokenSignature = errors.New("authentication token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked means the token was invalidated by logout before its
// natural expiry.
var ErrTokenRevoked = errors.New("authentication token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound means a token subject no longer resolves to an account.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound)

// ErrNoEmptyString rejects empty passwords before they reach the hasher.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// IsTokenExpiredError will check for expired tokens, including errors from
// upstream JWT libraries that only carry a message.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation reports whether a store error is a unique constraint
// breach. We match driver messages because bun surfaces them verbatim for
// both sqlite and postgres.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

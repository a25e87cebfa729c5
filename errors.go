package accounts

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes transports can rely on when mapping errors to responses.
const (
	TextCodeValidation          = "VALIDATION_ERROR"
	TextCodeConflict            = "CONFLICT"
	TextCodeNotFound            = "NOT_FOUND"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeUnauthorized        = "UNAUTHORIZED"
	TextCodeAccountNotConfirmed = "ACCOUNT_NOT_CONFIRMED"
	TextCodeDependency          = "DEPENDENCY_ERROR"
	TextCodeInvalidTransition   = "INVALID_ACCOUNT_TRANSITION"
)

const unauthorizedMessage = "invalid credentials or session"

// NewValidationError reports malformed input.
func NewValidationError(message string, metadata ...map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest)
	return withMetadata(err, metadata...)
}

// NewConflictError reports a uniqueness violation, usually a duplicate email.
func NewConflictError(message string, metadata ...map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryConflict).
		WithTextCode(TextCodeConflict).
		WithCode(goerrors.CodeConflict)
	return withMetadata(err, metadata...)
}

// NewNotFoundError reports a missing account.
func NewNotFoundError(message string, metadata ...map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
	return withMetadata(err, metadata...)
}

// NewInvalidTokenError reports an unknown, expired or already used confirmation token.
func NewInvalidTokenError() *goerrors.Error {
	return goerrors.New("confirmation token is invalid or expired", goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidToken).
		WithCode(goerrors.CodeBadRequest)
}

// NewUnauthorizedError is returned for bad credentials and for missing or
// invalid sessions. The message is the same for every cause.
func NewUnauthorizedError() *goerrors.Error {
	return goerrors.New(unauthorizedMessage, goerrors.CategoryAuth).
		WithTextCode(TextCodeUnauthorized).
		WithCode(goerrors.CodeUnauthorized)
}

// NewAccountNotConfirmedError is returned when valid credentials belong to an
// account that has not confirmed its email.
func NewAccountNotConfirmedError() *goerrors.Error {
	return goerrors.New("account email has not been confirmed", goerrors.CategoryAuthz).
		WithTextCode(TextCodeAccountNotConfirmed).
		WithCode(goerrors.CodeForbidden)
}

// NewDependencyError wraps a fault from the directory, token store or
// notifier. It is fatal to the request only.
func NewDependencyError(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeDependency).
		WithCode(goerrors.CodeInternal)
}

func newInvalidTransitionError(from, to AccountStatus) *goerrors.Error {
	return goerrors.New("invalid account state transition", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidTransition).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
}

func withMetadata(err *goerrors.Error, metadata ...map[string]any) *goerrors.Error {
	for _, m := range metadata {
		if len(m) > 0 {
			err = err.WithMetadata(m)
		}
	}
	return err
}

// TextCode returns the stable text code carried by err, or an empty string.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// StatusCode maps err to the HTTP status a transport should answer with.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

func IsValidationError(err error) bool   { return TextCode(err) == TextCodeValidation }
func IsConflict(err error) bool          { return TextCode(err) == TextCodeConflict }
func IsNotFound(err error) bool          { return TextCode(err) == TextCodeNotFound }
func IsInvalidToken(err error) bool      { return TextCode(err) == TextCodeInvalidToken }
func IsUnauthorized(err error) bool      { return TextCode(err) == TextCodeUnauthorized }
func IsDependencyError(err error) bool   { return TextCode(err) == TextCodeDependency }
func IsInvalidTransition(err error) bool { return TextCode(err) == TextCodeInvalidTransition }

func IsAccountNotConfirmed(err error) bool {
	return TextCode(err) == TextCodeAccountNotConfirmed
}

// isDomainError reports whether err already carries one of our text codes,
// in which case it passes through the controller untouched.
func isDomainError(err error) bool {
	switch TextCode(err) {
	case TextCodeValidation, TextCodeConflict, TextCodeNotFound, TextCodeInvalidToken,
		TextCodeUnauthorized, TextCodeAccountNotConfirmed, TextCodeDependency, TextCodeInvalidTransition:
		return true
	}
	return false
}

// asDependency passes domain errors through and wraps everything else.
func asDependency(err error, message string) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return NewDependencyError(err, message)
}

// IsUniqueViolation checks driver messages for a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}

package auth

import (
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAlreadyExists      = "ALREADY_EXISTS"
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeInternal           = "INTERNAL_ERROR"
)

var (
	// ErrValidation is returned for malformed input. Field details live in
	// the "fields" metadata entry.
	ErrValidation = goerrors.New("invalid input", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)

	// ErrInvalidCredentials covers both unknown usernames and wrong passwords
	ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCredentials).
				WithCode(goerrors.CodeUnauthorized)

	ErrAlreadyExists = goerrors.New("record already exists", goerrors.CategoryConflict).
				WithTextCode(TextCodeAlreadyExists).
				WithCode(goerrors.CodeConflict)

	ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
			WithTextCode(TextCodeNotFound).
			WithCode(goerrors.CodeNotFound)

	ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
				WithTextCode(TextCodeUnauthenticated).
				WithCode(goerrors.CodeUnauthorized)

	ErrRateLimited = goerrors.New("too many attempts", goerrors.CategoryRateLimit).
			WithTextCode(TextCodeRateLimited).
			WithCode(429)

	ErrInternal = goerrors.New("internal error", goerrors.CategoryInternal).
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrorKind is the closed set of failure kinds surfaced by the package
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindInvalidCredentials
	KindAlreadyExists
	KindNotFound
	KindUnauthenticated
	KindRateLimited
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		switch rich.TextCode {
		case TextCodeValidation:
			return KindValidation
		case TextCodeInvalidCredentials:
			return KindInvalidCredentials
		case TextCodeAlreadyExists:
			return KindAlreadyExists
		case TextCodeNotFound:
			return KindNotFound
		case TextCodeUnauthenticated:
			return KindUnauthenticated
		case TextCodeRateLimited:
			return KindRateLimited
		case TextCodeInternal:
			return KindInternal
		}

		switch rich.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return KindValidation
		case goerrors.CategoryConflict:
			return KindAlreadyExists
		case goerrors.CategoryNotFound:
			return KindNotFound
		case goerrors.CategoryAuth:
			return KindUnauthenticated
		case goerrors.CategoryRateLimit:
			return KindRateLimited
		}
	}

	if IsConflict(err) {
		return KindAlreadyExists
	}

	if IsRecordNotFound(err) {
		return KindNotFound
	}

	return KindInternal
}

// IsRecordNotFound reports whether err means the store found no row
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return true
	}
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich != nil && rich.Category == goerrors.CategoryNotFound
}

// ValidationFields returns the per field messages carried by a validation
// error, or nil.
func ValidationFields(err error) map[string]string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil || rich.Metadata == nil {
		return nil
	}
	fields, _ := rich.Metadata["fields"].(map[string]string)
	return fields
}

// NewValidationError returns a validation error carrying per field messages
func NewValidationError(fields map[string]string) *goerrors.Error {
	return ErrValidation.Clone().WithMetadata(map[string]any{
		"fields": fields,
	})
}

func internalError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}

func alreadyExists(field string, source error) error {
	clone := ErrAlreadyExists.Clone()
	if source != nil {
		clone.Source = source
	}
	return clone.WithMetadata(map[string]any{
		"field": field,
	})
}

func notFound(entity string) error {
	return ErrNotFound.Clone().WithMetadata(map[string]any{
		"entity": entity,
	})
}

package kanban

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to clients alongside the HTTP status.
const (
	TextCodeTokenExpired  = "TOKEN_EXPIRED"
	TextCodeTokenMismatch = "TOKEN_MISMATCH"
	TextCodeBadSignature  = "BAD_SIGNATURE"
	TextCodeMalformed     = "TOKEN_MALFORMED"
	TextCodeStaleVersion  = "STALE_VERSION"
)

// ErrUnauthenticated is returned when an operation requires a principal and
// the request resolved to anonymous.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccessDenied is the uniform denial for every failed authorization
// check. It never says which specific check failed.
var ErrAccessDenied = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrBoardNotFound is returned when a referenced board does not exist.
var ErrBoardNotFound = goerrors.New("board not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTaskNotFound is returned when a board does not contain the referenced
// task.
var ErrTaskNotFound = goerrors.New("task not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAttachmentNotFound is returned when a task does not contain the
// referenced attachment.
var ErrAttachmentNotFound = goerrors.New("attachment not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// Session token verification failures. The codec never falls through to a
// generic error: a token is expired, tampered with, or not a token at all.
var (
	ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	ErrBadSignature = goerrors.New("session token signature does not match", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeBadSignature)

	ErrTokenMalformed = goerrors.New("session token cannot be decoded", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeMalformed)
)

// Secondary token verification failures. TokenExpired additionally clears
// the stored token; TokenMismatch leaves state unchanged.
var (
	ErrSecondaryTokenExpired = goerrors.New("token expired", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeTokenExpired)

	ErrSecondaryTokenMismatch = goerrors.New("token does not match", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeTokenMismatch)

	ErrNoSecondaryToken = goerrors.New("no pending token", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeTokenMismatch)
)

// ErrStaleVersion is returned when an optimistic-concurrency write lost the
// race: the record changed after it was read.
var ErrStaleVersion = goerrors.New("record was modified concurrently", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeStaleVersion)

// ErrMismatchedHashAndPassword is returned when a password does not match
// its stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password input before hashing.
var ErrNoEmptyString = goerrors.New("expected non empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// IsNotFound reports whether err is any of the domain not-found errors.
func IsNotFound(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryNotFound
	}
	return false
}

// IsConflict reports whether err signals a uniqueness or precondition
// violation.
func IsConflict(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryConflict
	}
	return false
}

// Package common defines shared constants, helpers and sentinel errors used
// across feedvault components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPortal        = errors.New("wrong login portal")
	ErrUnauthorizedDevice = errors.New("unauthorized device")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Download errors. ErrInvalidOrExpired deliberately covers both a bad
	// signature and an elapsed expiry.
	ErrInsufficientQuota = errors.New("insufficient download quota")
	ErrInvalidOrExpired  = errors.New("invalid or expired download token")
	ErrNotFoundOnDisk    = errors.New("file not found in storage")
	ErrIoFailure         = errors.New("file transfer failed")

	// Catalog errors.
	ErrDuplicateFile = errors.New("file already exists")

	// Payment errors.
	ErrUnknownPlan    = errors.New("invalid storage plan")
	ErrPaymentPending = errors.New("payment still pending or failed")
)

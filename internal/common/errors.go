// Package common defines shared constants and sentinel errors used across
// the device and server layers of Obralink. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrUnknownKind is returned for entity kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown entity kind")

	// ErrCompanyMismatch is returned when a write would change the owning
	// company of an existing row. Ownership is assigned at creation and
	// never reassigned.
	ErrCompanyMismatch = errors.New("company mismatch")

	// Service-level errors.
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUsernameTaken = errors.New("username already taken")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

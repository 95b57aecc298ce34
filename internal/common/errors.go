package common

import "errors"

// Business logic errors. Services return these (wrapped with context via
// fmt.Errorf("%w: ...")); the HTTP and socket layers map them to responses.
var (
	// Validation: bad or missing input, never retried
	ErrValidation = errors.New("invalid input")

	// Permission: block relationship, non-admin action, non-participant
	ErrPermission = errors.New("forbidden")

	// Missing entities
	ErrNotFound             = errors.New("resource not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrStatusNotFound       = errors.New("status not found")

	// Upload: media store failure; nothing is persisted when this is returned
	ErrUpload = errors.New("media upload failed")

	// Conflict: unique-constraint race; resolved internally, callers should
	// not normally observe it
	ErrConflict = errors.New("conflict")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

package services

import "errors"

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrNoFiles            = errors.New("no files uploaded")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("item belongs to another user")
	ErrItemNotFound       = errors.New("item not found")
	ErrPersistFailed      = errors.New("failed to save items")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

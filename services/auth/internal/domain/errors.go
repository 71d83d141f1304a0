package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUpstream           = errors.New("identity store unavailable")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidState       = errors.New("invalid or expired sign-in state")
	ErrRateLimited        = errors.New("too many sign-in attempts")
	ErrValidation         = errors.New("validation failed")
)

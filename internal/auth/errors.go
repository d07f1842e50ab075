package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password; both cases return this same error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, forged and expired bearer tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSession means the request carries no usable session cookie.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired means the session existed but its lifetime elapsed.
	ErrSessionExpired = errors.New("session expired")
)

package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrInvalidAddress        = errors.New("Address must be a hex ed25519 public key")
	ErrInvalidRole           = errors.New("Invalid role")
	ErrEmailTaken            = errors.New("Email already registered")
	ErrAddressTaken          = errors.New("Address already registered")
)

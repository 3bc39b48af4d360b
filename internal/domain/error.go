package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context for query")

	// Credential store
	ErrCredential       = errors.New("decryption failed")
	ErrUntrustedContext = errors.New("credential access outside a trusted context")

	// Payment provider
	ErrGateway = errors.New("payment gateway error")

	// Access links. Missing and expired tokens share this error.
	ErrLinkInvalid = errors.New("invalid link")

	ErrRender       = errors.New("invoice document render failed")
	ErrRateLimited  = errors.New("too many requests")
	ErrDelivery     = errors.New("message delivery failed")
	ErrUnauthorized = errors.New("unauthorized")
)

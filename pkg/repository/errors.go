package repository

import "errors"

// Sentinel errors returned by repositories. Services translate them into
// pkg/errors codes; raw driver errors are wrapped, never returned bare.
var (
	// ErrNotFound is returned when a requested entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when a unique constraint rejects a write
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrConflict is returned when a conditional update matched no row
	ErrConflict = errors.New("entity conflict detected")

	// ErrInvalidInput is returned when a value cannot be encoded for storage
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

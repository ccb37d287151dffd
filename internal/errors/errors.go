package errors

import (
	"errors"
	"fmt"
)

// Common error types for the pin client
var (
	// Session errors
	ErrNoToken        = errors.New("no token")
	ErrTokenMalformed = errors.New("token malformed")
	ErrNoStoredUser   = errors.New("no stored user")

	// Storage errors
	ErrKeyNotFound = errors.New("key not found")

	// Flow errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// API errors
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrDecodeResponse   = errors.New("failed to decode response")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

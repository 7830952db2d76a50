package asqlite

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when operating on a closed connection.
var ErrClosed = errors.New("connection closed")

// RegistrationError is a failed scalar function registration.
type RegistrationError struct {
	Function string
	Err      error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register function %q: %v", e.Function, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

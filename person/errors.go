package person

import "errors"

var (
	// ErrPersonNotFound is returned when a person cannot be found.
	ErrPersonNotFound = errors.New("person: not found")

	// ErrDuplicateEmail is returned when the email is already taken.
	ErrDuplicateEmail = errors.New("person: email already registered")
)

package syncjob

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("syncjob: job not found")

	// ErrIllegalTransition is returned when an update would move a job
	// backwards in its lifecycle.
	ErrIllegalTransition = errors.New("syncjob: illegal state transition")
)

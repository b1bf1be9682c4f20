package domain

import "errors"

var (
	// ErrMissingTitle is returned for records without a usable title.
	ErrMissingTitle = errors.New("record title must not be empty")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

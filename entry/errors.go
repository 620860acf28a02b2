package entry

import "errors"

var (
	// ErrNotFound is returned when no entry has the requested ID
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyConfigured is returned when an entry for the URL exists
	ErrAlreadyConfigured = errors.New("bazarr instance already configured")

	// ErrAmbiguous is returned when an entry must be picked but several exist
	ErrAmbiguous = errors.New("multiple entries configured, specify one")
)

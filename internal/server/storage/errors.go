package storage

import "errors"

// Common storage errors
var (
	// ErrSiteNotFound indicates that the site was not found in storage
	ErrSiteNotFound = errors.New("site not found")

	// ErrSiteAlreadyExists indicates that a site with this ID is already enrolled
	ErrSiteAlreadyExists = errors.New("site already exists")

	// ErrTokenNotFound indicates that the refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrChangeNotFound indicates that the change log entry was not found
	ErrChangeNotFound = errors.New("change not found")
)

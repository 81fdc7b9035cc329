package webmaster

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by every authenticated call made before a
	// successful login.
	ErrNotAuthenticated = errors.New("webmaster: not authenticated")

	// ErrSessionExpired is returned when the console answers an authenticated
	// request with its login page.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrNotAuthenticated)

	// ErrTokenNotFound is returned when a login response has status 200 but no
	// `Auth=` line.
	ErrTokenNotFound = errors.New("webmaster: auth token not found in login response")

	// ErrTokenExtraction is returned when an intermediate page does not carry a
	// security token for the requested download.
	ErrTokenExtraction = errors.New("webmaster: failed to extract security token")

	ErrSiteNotFound     = errors.New("webmaster: site not in account")
	ErrSiteNotVerified  = errors.New("webmaster: site is not verified")
	ErrInvalidDateRange = errors.New("webmaster: date range start is after end")

	// ErrDownloadURLNotFound is returned when the downloads list has no entry
	// for a directly downloadable table.
	ErrDownloadURLNotFound = errors.New("webmaster: download url not found")
)

// BadStatusError is returned for every response with a status other than 200,
// the response body is discarded.
type BadStatusError struct {
	Code int
	URL  string
}

func (e BadStatusError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("webmaster: bad response code %d", e.Code)
	}
	return fmt.Sprintf("webmaster: bad response code %d for url %q", e.Code, e.URL)
}

// PreconditionError is returned when client state required by a retrieval was
// never set. No request is made when it is returned.
type PreconditionError struct {
	Field string
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("webmaster: you must set a %s value", e.Field)
}

// UnknownTableError is returned for table names outside of the known set.
type UnknownTableError struct {
	Table string
}

func (e UnknownTableError) Error() string {
	return fmt.Sprintf("webmaster: unknown table %q", e.Table)
}

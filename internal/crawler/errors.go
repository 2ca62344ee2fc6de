package crawler

import "errors"

var (
	// ErrConfiguration marks fatal configuration problems detected before a run.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedResourceType is returned when a job requests a capability it cannot use.
	ErrUnsupportedResourceType = errors.New("unsupported resource type")
	// ErrSiteNotFound is returned when no site definition matches a name or URL.
	ErrSiteNotFound = errors.New("site not found")
)

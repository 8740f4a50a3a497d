package relay

import "errors"

var (
	// ErrRestartRequested is returned by Run when a subscriber sent <restart>.
	ErrRestartRequested = errors.New("restart requested")

	// ErrTooManyFailures is returned by Run once consecutive scraper
	// failures exceed the configured budget.
	ErrTooManyFailures = errors.New("too many consecutive scraper failures")
)

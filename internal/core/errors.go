package core

import "errors"

var (
	// ErrInboxClosed is returned when submitting to a closed inbox.
	ErrInboxClosed = errors.New("inbox closed")
	// ErrInboxFull is returned by TrySubmit when no slot is free.
	ErrInboxFull = errors.New("inbox full")
)

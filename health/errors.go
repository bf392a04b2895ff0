package health

import "errors"

var (
	// ErrCheckFailed marks results produced by a failing check.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks results abandoned at the monitor deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrUnknownCheck is returned when a named check is not registered.
	ErrUnknownCheck = errors.New("health: unknown check")
)

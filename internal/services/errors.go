package services

import "errors"

// Sentinel errors returned by the lifecycle services. Handlers map these to
// HTTP statuses with errors.Is; services wrap them with context via
// fmt.Errorf("...: %w", Err...).
var (
	// ErrUnauthenticated means the operation requires an identity and none
	// was supplied.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidRequest means the request payload fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound means the referenced record does not exist or is not
	// visible to the requester.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means the requester's identity or role does not
	// allow the operation on this record.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict means the record's current state does not allow the
	// requested change (e.g. a disallowed status transition).
	ErrConflict = errors.New("conflict with current state")
)

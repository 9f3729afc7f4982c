package roles

import "errors"

// Errors surfaced by RoleManager implementations. The engine treats all of
// them as non-fatal: the affected member or rule is skipped and the next
// pass retries.
var (
	// ErrPermissionDenied means the bot may not manage the role, usually
	// because its highest role is not above the target role.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means a role or member no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrTransport wraps API and network failures.
	ErrTransport = errors.New("transport failure")
)

package approval

import (
	"errors"
)

// Typed failures returned by the request service. Handlers translate them to
// response codes with errors.Is; none of them leaves partial state behind.
// Execution failures are deliberately absent: they are absorbed into the
// request's ExecutionResult and never surfaced as a call error.
var (
	// ErrNotFound means the request id does not exist.
	ErrNotFound = errors.New("approval request not found")
	// ErrAlreadyProcessed means the request is no longer Pending.
	ErrAlreadyProcessed = errors.New("approval request already processed")
	// ErrForbidden means the actor may not perform this operation.
	ErrForbidden = errors.New("not allowed to act on this approval request")
	// ErrConflict means an equivalent pending request already exists.
	ErrConflict = errors.New("a pending request for this target already exists")
	// ErrValidation means the payload is malformed for the request kind.
	ErrValidation = errors.New("invalid request payload")
)

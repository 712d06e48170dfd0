package pixiv

import (
	"errors"
	"fmt"
)

// Sentinel errors for pixiv operations.
var (
	ErrNotFound           = errors.New("pixiv: not found")
	ErrRateLimited        = errors.New("pixiv: rate limited by server")
	ErrBadRequest         = errors.New("pixiv: bad request")
	ErrServer             = errors.New("pixiv: server error")
	ErrUnexpectedStatus   = errors.New("pixiv: unexpected status")
	ErrUpstreamMessage    = errors.New("pixiv: upstream reported an error")
	ErrMissingContentType = errors.New("pixiv: probe response has no Content-Type")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "fetchProfile", "probeEnclosure"
	ID  string // User ID or work ID
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("pixiv %s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("pixiv %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, id string, err error) error {
	return &Error{
		Op:  op,
		ID:  id,
		Err: err,
	}
}

package playground

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when a store-mutating operation is
// attempted without an owner identity. The store is never called in that
// case.
var ErrUnauthenticated = errors.New("authentication required")

// NotFoundError reports that an update or delete targeted a snippet that no
// longer exists, typically because it was deleted concurrently.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("snippet %q not found", e.ID)
}

// TransportError wraps a store or session failure unrelated to record
// existence: connectivity, authorization, driver errors. It is surfaced
// with the underlying message and never retried automatically.
type TransportError struct {
	Op  string // operation that failed: "list", "create", "update", "delete"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snippet store %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

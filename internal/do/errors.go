package do

import "errors"

var (
	// ErrDuplicateObject: a view for that (do_id, role) already exists.
	ErrDuplicateObject = errors.New("do: duplicate object")
	// ErrNotFound: registry lookup miss.
	ErrNotFound = errors.New("do: object not found")
	// ErrAllocationExhausted: no free do_id left in the configured range.
	ErrAllocationExhausted = errors.New("do: id allocation exhausted")
	// ErrUnknownClass: no factory registered for (class, role).
	ErrUnknownClass = errors.New("do: unknown class")
)

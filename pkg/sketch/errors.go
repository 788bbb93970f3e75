package sketch

import "errors"

var (
	// ErrInvalidParameter is returned by construction when epsilon or delta is not strictly
	// positive, or when they produce a dimension that is zero or out of range.
	ErrInvalidParameter = errors.New("invalid sketch parameter")
	// ErrResourceExhausted is returned when the counter matrix would exceed the counters ceiling.
	ErrResourceExhausted = errors.New("sketch resources exhausted")
	// ErrUninitialized is returned by any operation on a nil or destroyed sketch.
	ErrUninitialized = errors.New("sketch is not initialized")
	// ErrOverflow is returned under OverflowFail when an increment would overflow a counter.
	ErrOverflow = errors.New("sketch counter overflow")
)

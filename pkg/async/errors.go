package async

import "errors"

var (
	// ErrTimeout is returned when AwaitWithTimeout exceeds its duration.
	ErrTimeout = errors.New("async: operation timed out")

	// ErrNoFutures is returned when WaitAny is called without futures.
	ErrNoFutures = errors.New("async: no futures provided")
)

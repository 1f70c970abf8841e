package artifact

import (
	"errors"
	"fmt"
)

// ErrIO classifies every failure to delete or write an artifact.
// Use errors.Is(err, ErrIO) to detect it.
var ErrIO = errors.New("artifact i/o failed")

// Error reports a failed filesystem operation on an artifact.
// Path is the resolved path inside the output directory.
type Error struct {
	// Op is the failed operation, e.g. "delete" or "write".
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("unable to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrIO.
func (e *Error) Is(target error) bool {
	return target == ErrIO
}

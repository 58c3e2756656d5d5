package resilience

import (
	"errors"
	"fmt"
)

// ErrPanic marks an error produced by a recovered panic.
var ErrPanic = errors.New("recovered panic")

// Recover runs fn and converts a panic inside it into an error wrapping
// ErrPanic, so callers can degrade instead of crashing the process.
func Recover(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", name, ErrPanic, r)
		}
	}()
	return fn()
}

package core

import (
	"errors"
	"fmt"
)

// Common error kinds. Duplicate content is not an error: idempotent create
// returns the existing ID instead.
var (
	ErrNotFound         = fmt.Errorf("node not found")
	ErrCollision        = fmt.Errorf("id collision")
	ErrCycleDetected    = fmt.Errorf("cycle detected")
	ErrInvalidReference = fmt.Errorf("invalid reference")
	ErrInvalidMetadata  = fmt.Errorf("invalid metadata")
)

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCollision checks if an error is an id collision error
func IsCollision(err error) bool {
	return errors.Is(err, ErrCollision)
}

// IsCycle checks if an error is a cycle detection error
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

// IsInvalidReference checks if an error is an invalid reference error
func IsInvalidReference(err error) bool {
	return errors.Is(err, ErrInvalidReference)
}

// IsInvalidMetadata checks if an error is an invalid metadata error
func IsInvalidMetadata(err error) bool {
	return errors.Is(err, ErrInvalidMetadata)
}

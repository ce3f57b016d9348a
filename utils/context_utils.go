package utils

import "golang.org/x/net/context"

// CheckContextDone checks if a provided context has indicated it is done, and returns a boolean indicating if it is.
func CheckContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// ContextError returns the context's error if it is done, or nil otherwise.
func ContextError(ctx context.Context) error {
	if CheckContextDone(ctx) {
		return ctx.Err()
	}
	return nil
}

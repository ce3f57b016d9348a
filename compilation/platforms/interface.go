package platforms

import (
	"context"
	"fmt"

	"github.com/shadow-hq/shadow/compilation/types"
)

// PlatformConfig describes the interface all compilation platform configs must implement.
type PlatformConfig interface {
	// Compile builds the target and returns one artifact per contract along with the raw command output.
	Compile(ctx context.Context) ([]*types.CompiledArtifact, string, error)
	Platform() string
	GetTarget() string
	SetTarget(string)
}

// CompileError describes a failure of the external compiler: a syntax error, a settings mismatch, or a compiler which
// could not be run at all.
type CompileError struct {
	// Platform is the identifier of the platform which failed.
	Platform string

	// Output holds the compiler diagnostics, if any were produced.
	Output string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s compilation failed: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s compilation failed: %v\n\nCompiler output:\n%s", e.Platform, e.Err, e.Output)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

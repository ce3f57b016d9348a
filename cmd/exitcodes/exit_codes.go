package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeHandledError indicates an error which was already logged, so the top-level should not print it again.
	ExitCodeHandledError = 6

	// ExitCodeDivergence indicates a replay finished and found a shadow execution whose behavior diverged from the
	// original.
	ExitCodeDivergence = 7
)

package exitcodes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetInnerErrorAndExitCode(t *testing.T) {
	err, code := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, code)

	generic := errors.New("boom")
	err, code = GetInnerErrorAndExitCode(generic)
	assert.Equal(t, generic, err)
	assert.Equal(t, ExitCodeGeneralError, code)

	err, code = GetInnerErrorAndExitCode(NewErrorWithExitCode(generic, ExitCodeHandledError))
	assert.Equal(t, generic, err)
	assert.Equal(t, ExitCodeHandledError, code)

	// Wrapping does not hide the exit code
	err, code = GetInnerErrorAndExitCode(errors.Wrap(NewErrorWithExitCode(nil, ExitCodeDivergence), "replay"))
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeDivergence, code)
}

package utils

import (
	"bytes"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// RunCommandWithOutputAndError runs a given exec.Cmd and returns the stdout, stderr, and
// combined output as bytes, or an error if one occurred.
func RunCommandWithOutputAndError(command *exec.Cmd) ([]byte, []byte, []byte, error) {
	var bStdout, bStderr, bCombined bytes.Buffer

	// Both streams write into the combined buffer concurrently.
	var combinedWriter io.Writer = &synchronizedWriter{writer: &bCombined}
	command.Stdout = io.MultiWriter(&bStdout, combinedWriter)
	command.Stderr = io.MultiWriter(&bStderr, combinedWriter)

	err := command.Run()
	return bStdout.Bytes(), bStderr.Bytes(), bCombined.Bytes(), err
}

// EnsureCommandAvailable returns an error if the named executable cannot be found on the PATH.
func EnsureCommandAvailable(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return errors.Errorf("%s is not installed or not on the PATH: %v", name, err)
	}
	return nil
}

// IsWindowsEnvironment returns a boolean indicating whether the current execution environment is a Windows platform.
func IsWindowsEnvironment() bool {
	return runtime.GOOS == "windows"
}

// synchronizedWriter wraps an io.Writer to avoid a data race when writing.
type synchronizedWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

func (s *synchronizedWriter) Write(p []byte) (n int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writer.Write(p)
}

//go:build !windows

package colors

import (
	"fmt"
	"sync/atomic"
)

var enabled atomic.Bool

// EnableColor turns ANSI coloring on. Unix terminals always support escape codes.
func EnableColor() {
	enabled.Store(true)
}

// DisableColor turns ANSI coloring off, e.g. for --no-color or when writing to a pipe.
func DisableColor() {
	enabled.Store(false)
}

// Enabled reports whether ANSI coloring is on.
func Enabled() bool {
	return enabled.Load()
}

// Colorize wraps s in the ANSI code c when coloring is enabled.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	if !enabled.Load() {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

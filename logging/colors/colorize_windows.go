//go:build windows

package colors

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

var enabled atomic.Bool

// EnableColor asks the console for virtual terminal processing and turns coloring on only if the console accepts it.
func EnableColor() {
	var mode uint32
	handle := windows.Handle(os.Stdout.Fd())
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		enabled.Store(false)
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
		if err := windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
			enabled.Store(false)
			return
		}
	}
	enabled.Store(true)
}

// DisableColor turns ANSI coloring off.
func DisableColor() {
	enabled.Store(false)
}

// Enabled reports whether ANSI coloring is on.
func Enabled() bool {
	return enabled.Load()
}

// Colorize wraps s in the ANSI code c when the console supports it.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	if !enabled.Load() {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

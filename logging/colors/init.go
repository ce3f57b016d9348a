package colors

// init enables ANSI coloring. Unix terminals support it natively, Windows consoles need a kernel call.
func init() {
	EnableColor()
}

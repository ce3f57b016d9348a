package logging

// LogBuffer collects log arguments (values, color functions, structured info) so that a multi-line message such as a
// replay report can be assembled piece by piece and then logged at once.
type LogBuffer struct {
	args []any
}

// NewLogBuffer creates an empty LogBuffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		args: make([]any, 0),
	}
}

// Append appends arguments to the buffer.
func (l *LogBuffer) Append(newArgs ...any) {
	l.args = append(l.args, newArgs...)
}

// Args returns the buffered arguments.
func (l *LogBuffer) Args() []any {
	return l.args
}

// String returns the buffer content without color.
func (l *LogBuffer) String() string {
	_, msg, _, _ := buildMsgs(l.args...)
	return msg
}

// ColorString returns the buffer content with the color functions applied.
func (l *LogBuffer) ColorString() string {
	msg, _, _, _ := buildMsgs(l.args...)
	return msg
}

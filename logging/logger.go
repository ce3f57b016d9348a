package logging

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shadow-hq/shadow/logging/colors"
)

// GlobalLogger is disabled until the CLI configures it. Each package derives its own sub-logger from it so that log
// lines can be filtered by the "module" key.
var GlobalLogger = NewLogger(zerolog.Disabled, false)

// Logger logs to a colorized console and to any number of additional writers, each either structured (JSON) or
// unstructured (plain text without ANSI codes).
type Logger struct {
	level zerolog.Level

	// context holds the key-value pairs added through NewSubLogger, in order. They are replayed onto the loggers
	// whenever the writer set changes.
	context [][2]string

	// consoleEnabled and consoleOut describe the colorized console channel.
	consoleEnabled bool
	consoleOut     io.Writer

	// structuredWriters receive JSON output, unstructuredWriters receive plain text.
	structuredWriters   []io.Writer
	unstructuredWriters []io.Writer

	multiLogger   zerolog.Logger
	consoleLogger zerolog.Logger
}

// LogFormat describes what format a writer receives.
type LogFormat string

const (
	// STRUCTURED writes JSON lines
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED writes human-readable lines without color
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo is a key-value mapping attached to a single log event under the "info" key.
type StructuredLogInfo map[string]any

// NewLogger creates a Logger at the given level. Console output goes to stderr when consoleEnabled is set, and every
// provided writer receives structured output.
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	l := &Logger{
		level:             level,
		consoleEnabled:    consoleEnabled,
		consoleOut:        os.Stderr,
		structuredWriters: slices.Clone(writers),
	}
	l.rebuild()
	return l
}

// NewSubLogger creates a copy of the Logger carrying an additional key-value pair on every event.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:               l.level,
		context:             append(slices.Clone(l.context), [2]string{key, value}),
		consoleEnabled:      l.consoleEnabled,
		consoleOut:          l.consoleOut,
		structuredWriters:   slices.Clone(l.structuredWriters),
		unstructuredWriters: slices.Clone(l.unstructuredWriters),
	}
	sub.rebuild()
	return sub
}

// SetConsoleOutput redirects the console channel, which defaults to stderr.
func (l *Logger) SetConsoleOutput(out io.Writer) {
	l.consoleOut = out
	l.rebuild()
}

// AddWriter adds a writer in the given format. Adding a writer twice is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	if slices.Contains(l.structuredWriters, writer) || slices.Contains(l.unstructuredWriters, writer) {
		return
	}
	if format == UNSTRUCTURED {
		l.unstructuredWriters = append(l.unstructuredWriters, writer)
	} else {
		l.structuredWriters = append(l.structuredWriters, writer)
	}
	l.rebuild()
}

// RemoveWriter removes a writer. Removing an unknown writer is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer) {
	remove := func(w io.Writer) bool { return w == writer }
	l.structuredWriters = slices.DeleteFunc(l.structuredWriters, remove)
	l.unstructuredWriters = slices.DeleteFunc(l.unstructuredWriters, remove)
	l.rebuild()
}

// Level returns the log level of the Logger.
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the log level of the Logger.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// rebuild recreates the underlying zerolog loggers from the current level, writers and context.
func (l *Logger) rebuild() {
	multiLogger := zerolog.New(io.Discard).Level(zerolog.Disabled)
	outputs := make([]io.Writer, 0, len(l.structuredWriters)+len(l.unstructuredWriters))
	outputs = append(outputs, l.structuredWriters...)
	for _, w := range l.unstructuredWriters {
		outputs = append(outputs, zerolog.ConsoleWriter{Out: w, NoColor: true})
	}
	if len(outputs) > 0 {
		multiLogger = zerolog.New(zerolog.MultiLevelWriter(outputs...)).Level(l.level).With().Timestamp().Logger()
	}

	consoleLogger := zerolog.New(io.Discard).Level(zerolog.Disabled)
	if l.consoleEnabled && l.consoleOut != nil {
		consoleWriter := setupDefaultFormatting(zerolog.ConsoleWriter{Out: l.consoleOut, NoColor: !colors.Enabled()}, l.level)
		consoleLogger = zerolog.New(consoleWriter).Level(l.level)
	}

	for _, kv := range l.context {
		multiLogger = multiLogger.With().Str(kv[0], kv[1]).Logger()
		consoleLogger = consoleLogger.With().Str(kv[0], kv[1]).Logger()
	}
	l.multiLogger = multiLogger
	l.consoleLogger = consoleLogger
}

// Trace logs a trace event.
func (l *Logger) Trace(args ...any) {
	l.log(l.consoleLogger.Trace(), l.multiLogger.Trace(), false, args)
}

// Debug logs a debug event.
func (l *Logger) Debug(args ...any) {
	l.log(l.consoleLogger.Debug(), l.multiLogger.Debug(), false, args)
}

// Info logs an info event.
func (l *Logger) Info(args ...any) {
	l.log(l.consoleLogger.Info(), l.multiLogger.Info(), false, args)
}

// Warn logs a warning event.
func (l *Logger) Warn(args ...any) {
	l.log(l.consoleLogger.Warn(), l.multiLogger.Warn(), false, args)
}

// Error logs an error event.
func (l *Logger) Error(args ...any) {
	l.log(l.consoleLogger.Error(), l.multiLogger.Error(), false, args)
}

// Panic logs a panic event and panics.
func (l *Logger) Panic(args ...any) {
	l.log(l.consoleLogger.Panic(), l.multiLogger.Panic(), true, args)
}

// log attaches the error, structured info and messages built from args to both events and sends them. Stack traces
// are attached at debug level and below, and always for panics.
func (l *Logger) log(consoleLog *zerolog.Event, multiLog *zerolog.Event, withStack bool, args []any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Err and Stack are safe on nil (disabled) events
	consoleLog.Err(err)
	multiLog.Err(err)
	if withStack || l.level <= zerolog.DebugLevel {
		consoleLog.Stack()
		multiLog.Stack()
	}

	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// The multi logger is sent last so that a panic raised by the console event still reaches every writer
	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// buildMsgs turns a variadic argument list into a colorized console message and a plain message. A colors.ColorFunc
// argument switches the color context for the arguments following it. At most one error and one StructuredLogInfo are
// extracted; the last one of each wins.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	var consoleOutput, fileOutput strings.Builder
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			info = t
		case error:
			err = t
		case *LogBuffer:
			nestedConsole, nestedFile, _, _ := buildMsgs(t.Args()...)
			consoleOutput.WriteString(nestedConsole)
			fileOutput.WriteString(nestedFile)
		default:
			consoleOutput.WriteString(colorCtx(t))
			fileOutput.WriteString(fmt.Sprintf("%v", t))
		}
	}

	return consoleOutput.String(), fileOutput.String(), err, info
}

// setupDefaultFormatting drops timestamps from console output and replaces level names with colored markers.
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		s, _ := i.(string)
		lvl, err := zerolog.ParseLevel(s)
		if err != nil {
			return s
		}

		switch lvl {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return s
		}
	}

	// The module key is only useful when debugging
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}

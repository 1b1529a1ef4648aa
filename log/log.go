package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Verbose controls whether debug messages are being printed.
var Verbose bool

// IndentationLevel controls the amount of indentation of log messages.
var IndentationLevel = 0

var errorOccured = false

const (
	indentField  = "indent"
	successField = "success"
	stepField    = "step"
)

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Out = out
	l.Formatter = &formatter{}
	l.Level = logrus.InfoLevel
	return l
}

// formatter renders entries the way the command line expects them: indented,
// with a coloured level prefix, and without a trailing newline of its own.
type formatter struct{}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}
	if indent, ok := entry.Data[indentField].(int); ok && indent > 0 {
		b.WriteString(strings.Repeat("  ", indent))
	}

	switch {
	case entry.Data[successField] == true:
		b.WriteString("\033[32mSuccess: \033[0m")
	case entry.Level == logrus.DebugLevel:
		b.WriteString("\033[36mDebug: \033[0m")
	case entry.Level == logrus.WarnLevel:
		b.WriteString("\033[33mWarning: \033[0m")
	case entry.Level <= logrus.ErrorLevel:
		b.WriteString("\033[31mError: \033[0m")
	}

	if step, ok := entry.Data[stepField].(string); ok && step != "" {
		fmt.Fprintf(b, "[%s] ", step)
	}
	b.WriteString(entry.Message)
	return b.Bytes(), nil
}

// SetOutput redirects all log messages to w.
func SetOutput(w io.Writer) {
	logger.Out = w
}

func entry() *logrus.Entry {
	if Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger.WithField(indentField, IndentationLevel)
}

// WithStep returns an entry that tags its messages with the short name of a build step.
// Debug messages logged through it are only printed if verbose output is selected.
func WithStep(name string) *logrus.Entry {
	return entry().WithField(stepField, name)
}

// ErrorOccured reports whether any errors have occured.
func ErrorOccured() bool {
	return errorOccured
}

// Log prints an indented and formatted message to os.Stderr.
func Log(format string, a ...interface{}) {
	entry().Infof(format, a...)
}

// Debug prints an indented and formatted debug message to os.Stderr if verbose output is selected.
func Debug(format string, a ...interface{}) {
	if Verbose {
		entry().Debugf(format, a...)
	}
}

// Success prints an indented and formatted success message to os.Stderr.
func Success(format string, a ...interface{}) {
	entry().WithField(successField, true).Infof(format, a...)
}

// Warning prints an indented and formatted warning to os.Stderr.
func Warning(format string, a ...interface{}) {
	entry().Warnf(format, a...)
}

// Error prints an indented and formatted error message to os.Stderr.
func Error(format string, a ...interface{}) {
	errorOccured = true
	entry().Errorf(format, a...)
}

// Fatal prints an indented and formatted error message to os.Stderr and terminates the program.
func Fatal(format string, a ...interface{}) {
	Error(format, a...)
	fmt.Fprintf(logger.Out, "\033[31mA fatal error occured. Exiting...\033[0m\n")
	os.Exit(1)
}

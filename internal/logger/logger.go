package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Prefix is printed in front of every diagnostic line
const Prefix = "ei-type"

var Logger *log.Logger

func init() {
	Logger = New(os.Stderr)
	Logger.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New creates a logger with the ei-type prefix and level styles
func New(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: Prefix})
	l.SetStyles(styles())
	return l
}

// ParseLevel maps a level name to a log level, defaulting to INFO
func ParseLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		// Default to INFO level if not specified or invalid
		return log.InfoLevel
	}
}

// Configure applies the configured level and verbosity to the global
// logger. Verbose always wins; an empty level keeps LOG_LEVEL.
func Configure(level string, verbose bool) {
	switch {
	case verbose:
		Logger.SetLevel(log.DebugLevel)
	case level != "":
		Logger.SetLevel(ParseLevel(level))
	}
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Prefix = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	s.Levels[log.DebugLevel] = lipgloss.NewStyle().SetString("DEBUG").Bold(true).Foreground(lipgloss.Color("63"))
	s.Levels[log.InfoLevel] = lipgloss.NewStyle().SetString("INFO").Bold(true).Foreground(lipgloss.Color("86"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().SetString("WARN").Bold(true).Foreground(lipgloss.Color("192"))
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().SetString("ERROR").Bold(true).Foreground(lipgloss.Color("204"))
	s.Levels[log.FatalLevel] = lipgloss.NewStyle().SetString("FATAL").Bold(true).Foreground(lipgloss.Color("134"))
	return s
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = map[int]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

// Global logger instance
var stdLogger *Logger

func init() {
	stdLogger = NewLogger(os.Stderr, LevelWarning)

	// Standart log paketinin çıktısını seviye filtresinden geçir
	log.SetOutput(&logWriter{logger: stdLogger})
	log.SetFlags(log.LstdFlags)
}

// Logger is a levelled logger safe for concurrent use
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	level      int
	prefix     string
	timeFormat string
}

// NewLogger creates a new logger with the specified writer and log level
func NewLogger(out io.Writer, level int) *Logger {
	return &Logger{
		out:        out,
		level:      level,
		timeFormat: "2006/01/02 15:04:05",
	}
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetLevel sets the minimum log level to display
func (l *Logger) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetPrefix sets the logger prefix
func (l *Logger) SetPrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = prefix
}

// Named returns a scoped view of the logger whose lines carry [name].
func (l *Logger) Named(name string) *Scoped {
	return &Scoped{base: l, scope: "[" + name + "] "}
}

func (l *Logger) log(level int, scope, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	levelName, ok := levelNames[level]
	if !ok {
		levelName = "UNKNOWN"
	}

	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}

	line := fmt.Sprintf("%s [%s] %s%s%s\n", time.Now().Format(l.timeFormat), levelName, l.prefix, scope, message)
	l.out.Write([]byte(line))

	if level == LevelFatal {
		os.Exit(1)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, "", format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "", format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(LevelWarning, "", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, "", format, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, "", format, args...)
}

// Scoped writes through its base logger with a fixed scope tag
type Scoped struct {
	base  *Logger
	scope string
}

func (s *Scoped) Debug(format string, args ...interface{}) {
	s.base.log(LevelDebug, s.scope, format, args...)
}

func (s *Scoped) Info(format string, args ...interface{}) {
	s.base.log(LevelInfo, s.scope, format, args...)
}

func (s *Scoped) Warning(format string, args ...interface{}) {
	s.base.log(LevelWarning, s.scope, format, args...)
}

func (s *Scoped) Error(format string, args ...interface{}) {
	s.base.log(LevelError, s.scope, format, args...)
}

// Named returns a scoped logger on the global logger
func Named(name string) *Scoped {
	return stdLogger.Named(name)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	stdLogger.Debug(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	stdLogger.Info(format, args...)
}

// Warning logs a warning message
func Warning(format string, args ...interface{}) {
	stdLogger.Warning(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	stdLogger.Error(format, args...)
}

// Fatal logs a fatal message and exits
func Fatal(format string, args ...interface{}) {
	stdLogger.Fatal(format, args...)
}

// SetLevel sets the global log level
func SetLevel(level int) {
	stdLogger.SetLevel(level)
}

// GetLevel returns the global log level
func GetLevel() int {
	return stdLogger.GetLevel()
}

// SetOutput sets the output destination for the global logger and the std log bridge
func SetOutput(w io.Writer) {
	stdLogger.SetOutput(w)
}

// ParseLevel converts a level string to its integer value
func ParseLevel(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// LevelToString converts a level integer to its string representation
func LevelToString(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "UNKNOWN"
}

// logWriter filters output of the standard log package by the global level
type logWriter struct {
	logger *Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	if detectLogLevel(string(p)) < w.logger.GetLevel() {
		return len(p), nil
	}

	w.logger.mu.Lock()
	out := w.logger.out
	w.logger.mu.Unlock()
	return out.Write(p)
}

// detectLogLevel examines a std log message to guess its level
func detectLogLevel(message string) int {
	switch {
	case strings.Contains(message, "[DEBUG]"):
		return LevelDebug
	case strings.Contains(message, "[INFO]"):
		return LevelInfo
	case strings.Contains(message, "[WARNING]"), strings.Contains(message, "[WARN]"):
		return LevelWarning
	case strings.Contains(message, "[ERROR]"):
		return LevelError
	case strings.Contains(message, "[FATAL]"):
		return LevelFatal
	}

	lower := strings.ToLower(message)
	for _, kw := range []string{"başarısız", "hata", "bulunamadı", "alınamadı", "failed", "error", "not found", "panic"} {
		if strings.Contains(lower, kw) {
			return LevelError
		}
	}
	for _, kw := range []string{"uyarı", "dikkat", "warning", "timed out", "skipped"} {
		if strings.Contains(lower, kw) {
			return LevelWarning
		}
	}

	return LevelInfo
}

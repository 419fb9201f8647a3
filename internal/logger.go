package internal

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// SecureLogger provides leveled logging with redaction of API keys and
// security policies.
type SecureLogger struct {
	logger    *log.Logger
	mutex     sync.RWMutex
	level     LogLevel
	debug     bool
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// HeaderRedactor redacts credential-bearing header values from strings
type HeaderRedactor struct{}

func (r *HeaderRedactor) Redact(input string) string {
	patterns := []string{
		"Authorization: ",
		"Cookie: ",
	}

	result := input
	for _, pattern := range patterns {
		result = redactAfter(result, pattern, func(c byte) bool {
			return c == '\n' || c == '\r'
		})
	}
	return result
}

// URLRedactor redacts API keys and signed policies from URL query strings
type URLRedactor struct{}

func (r *URLRedactor) Redact(input string) string {
	sensitiveParams := []string{
		"key=",
		"policy=",
		"signature=",
		"secret=",
	}

	result := input
	for _, param := range sensitiveParams {
		result = redactQueryParam(result, param)
	}
	return result
}

// redactAfter replaces every value following pattern (case-insensitive) up to
// the first byte matched by stop.
func redactAfter(input, pattern string, stop func(byte) bool) string {
	lowerPattern := strings.ToLower(pattern)
	var b strings.Builder
	rest := input
	for {
		index := strings.Index(strings.ToLower(rest), lowerPattern)
		if index == -1 {
			b.WriteString(rest)
			return b.String()
		}
		start := index + len(pattern)
		end := start
		for end < len(rest) && !stop(rest[end]) {
			end++
		}
		b.WriteString(rest[:start])
		if end > start && !strings.HasPrefix(rest[start:end], "[REDACTED]") {
			b.WriteString("[REDACTED]")
		} else {
			b.WriteString(rest[start:end])
		}
		rest = rest[end:]
	}
}

// redactQueryParam redacts values of param only where it starts a query
// parameter, so "apikey=" is not mistaken for "key=".
func redactQueryParam(input, param string) string {
	var b strings.Builder
	rest := input
	for {
		index := strings.Index(strings.ToLower(rest), param)
		if index == -1 {
			b.WriteString(rest)
			return b.String()
		}
		start := index + len(param)
		if index > 0 && rest[index-1] != '?' && rest[index-1] != '&' && rest[index-1] != ' ' {
			b.WriteString(rest[:start])
			rest = rest[start:]
			continue
		}
		end := start
		for end < len(rest) && rest[end] != '&' && rest[end] != ' ' && rest[end] != '\n' {
			end++
		}
		b.WriteString(rest[:start])
		if end > start {
			b.WriteString("[REDACTED]")
		}
		rest = rest[end:]
	}
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	return &SecureLogger{
		logger: log.New(output, "", 0),
		level:  level,
		debug:  debug,
		quiet:  quiet,
		redactors: []Redactor{
			&HeaderRedactor{},
			&URLRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	return NewSecureLogger(os.Stderr, level, debug, quiet)
}

// redactSensitiveData applies all redactors to the input string
func (sl *SecureLogger) redactSensitiveData(input string) string {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()

	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

// formatMessage formats a log message with timestamp and, in debug mode,
// caller information
func (sl *SecureLogger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	if sl.isDebug() {
		for depth := 3; depth <= 5; depth++ {
			_, file, line, ok := runtime.Caller(depth)
			if ok && !strings.HasSuffix(file, "logger.go") && !strings.HasSuffix(file, "internal/log.go") {
				parts := strings.Split(file, "/")
				filename := parts[len(parts)-1]
				return fmt.Sprintf("[%s] %s %s:%d %s", timestamp, level.String(), filename, line, message)
			}
		}
	}

	return fmt.Sprintf("[%s] %s %s", timestamp, level.String(), message)
}

func (sl *SecureLogger) isDebug() bool {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	return sl.debug
}

// shouldLog determines if a message should be logged based on level
func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()

	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) logf(level LogLevel, format string, args ...interface{}) {
	if !sl.shouldLog(level) {
		return
	}

	message := fmt.Sprintf(format, args...)
	message = sl.redactSensitiveData(message)
	sl.logger.Print(sl.formatMessage(level, message))
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args...)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.logf(LogLevelWarn, format, args...)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.logf(LogLevelInfo, format, args...)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.logf(LogLevelDebug, format, args...)
}

// LogHTTPRequest logs an outgoing request with credentials redacted
func (sl *SecureLogger) LogHTTPRequest(req *http.Request) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}

	sl.Debug("HTTP Request: %s %s Headers: %v", req.Method, req.URL.String(), sl.sanitizeHeaders(req.Header))
}

// LogHTTPResponse logs a response status line and headers
func (sl *SecureLogger) LogHTTPResponse(resp *http.Response) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}

	sl.Debug("HTTP Response: %d %s Headers: %v", resp.StatusCode, resp.Status, sl.sanitizeHeaders(resp.Header))
}

func (sl *SecureLogger) sanitizeHeaders(header http.Header) map[string]string {
	sanitized := make(map[string]string, len(header))
	for name, values := range header {
		if sl.isSensitiveHeader(name) {
			sanitized[name] = "[REDACTED]"
		} else {
			sanitized[name] = strings.Join(values, ", ")
		}
	}
	return sanitized
}

// isSensitiveHeader checks if a header contains sensitive information
func (sl *SecureLogger) isSensitiveHeader(name string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"x-api-key",
		"token",
	}

	lowerName := strings.ToLower(name)
	for _, sensitive := range sensitiveHeaders {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SetLevel sets the logging level
func (sl *SecureLogger) SetLevel(level LogLevel) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.level = level
}

// SetDebug enables or disables debug mode
func (sl *SecureLogger) SetDebug(debug bool) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.debug = debug
	if debug {
		sl.level = LogLevelDebug
	}
}

// SetQuiet enables or disables quiet mode
func (sl *SecureLogger) SetQuiet(quiet bool) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.quiet = quiet
	if quiet {
		sl.level = LogLevelError
	}
}

// AddRedactor adds a custom redactor
func (sl *SecureLogger) AddRedactor(redactor Redactor) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.redactors = append(sl.redactors, redactor)
}

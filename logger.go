package apiclient

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal structured logging interface the client emits
// through. Keys and values alternate, slog style, so host programs can adapt
// their own logger with a few lines.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger adapts a logrus logger to the Logger interface.
type SimpleLogger struct {
	log *logrus.Logger
}

// NewSimpleLogger returns a logrus-backed logger at debug level with full
// timestamps, suitable for development and examples.
func NewSimpleLogger() *SimpleLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &SimpleLogger{log: log}
}

// NewLogrusLogger wraps an existing logrus logger so host programs keep their
// own formatting, level and output configuration.
func NewLogrusLogger(log *logrus.Logger) *SimpleLogger {
	return &SimpleLogger{log: log}
}

// Debug logs at debug level.
func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(toFields(keysAndValues)).Debug(msg)
}

// Info logs at info level.
func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(toFields(keysAndValues)).Info(msg)
}

// Warn logs at warn level.
func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(toFields(keysAndValues)).Warn(msg)
}

// Error logs at error level.
func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 == 1 {
		fields["extra"] = keysAndValues[len(keysAndValues)-1]
	}
	return fields
}

// DebugConfig gates per-area debug output so noisy areas can be silenced
// individually.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogCache     bool
	LogRouting   bool
	LogAuth      bool
	LogRateLimit bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a config with every area enabled but debug
// output off until WithDebug switches it on.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogCache:     true,
		LogRouting:   true,
		LogAuth:      true,
		LogRateLimit: true,
		RequestIDGen: generateRequestID,
	}
}

func generateRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(buf[:])
}

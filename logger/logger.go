package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var log = newLogger(os.Stdout, os.Getenv("LOG_LEVEL"))

func newLogger(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(parseLevel(level))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return l
}

func parseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Initialize reconfigures the shared logger. Call once from main after the
// environment has been loaded.
func Initialize(level string, json bool) {
	log.SetLevel(parseLevel(level))
	if json {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
}

// SetOutput redirects log output, used by tests.
func SetOutput(out io.Writer) {
	log.SetOutput(out)
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return log
}

// WithComponent creates a logger tagged with a component name
func WithComponent(component string) *logrus.Entry {
	return log.WithField("component", component)
}

// WithUser creates a logger with user context
func WithUser(uid, component string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"uid":       uid,
		"component": component,
	})
}

// WithIssue creates a logger with issue context
func WithIssue(issueID, component string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"issue_id":  issueID,
		"component": component,
	})
}

// WithError creates a logger with error context
func WithError(err error, component string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"error":     err.Error(),
		"component": component,
	})
}

func Info(msg string, fields map[string]interface{}) {
	log.WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	log.WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	log.WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	log.WithFields(fields).Fatal(msg)
}
